package main

import (
	"io"
	"strings"
	"sync"

	"episode-scribe/config"
	"episode-scribe/feed"
	"episode-scribe/log"
	"episode-scribe/notifier"
	"episode-scribe/scheduler"
	"episode-scribe/scraper"
	"episode-scribe/season"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		log.SetLevel(cfg.LogLevel)
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) seasonTable() feed.SeasonTable {
	return feed.SeasonTable(c.config.Seasons)
}

func (c *commandContext) discoveryJob(out io.Writer) *scheduler.DiscoveryJob {
	cfg := c.config
	reader := feed.NewReader(feed.Options{
		Timeout:            cfg.RequestTimeout(),
		UserAgent:          cfg.Fetch.UserAgent,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
	}, c.seasonTable(), log.NewLogger("feed"))

	return scheduler.NewDiscoveryJob(reader, c.seasonTable(), cfg.FeedURL, cfg.CatalogPath, cfg.ListingPath, out, log.NewLogger("discover"))
}

func (c *commandContext) extractionJob(out io.Writer, opts ...scheduler.ExtractionOption) *scheduler.ExtractionJob {
	cfg := c.config
	fetcher := scraper.NewScraper(scraper.Options{
		MaxAttempts:        cfg.Fetch.MaxAttempts,
		Timeout:            cfg.RequestTimeout(),
		RetryDelay:         cfg.RetryDelay(),
		UserAgent:          cfg.Fetch.UserAgent,
		InsecureSkipVerify: cfg.Fetch.InsecureSkipVerify,
	}, log.NewLogger("scraper"))

	processor := season.NewProcessor(fetcher, log.NewLogger("season"),
		season.WithPaceDelay(cfg.PaceDelay()),
		season.WithDocx(cfg.WriteDocx),
	)

	logger := log.NewLogger("extract")
	opts = append(opts, scheduler.WithOutput(out))
	if cfg.EmailEnabled() {
		n, err := notifier.NewEmailNotifier(cfg.Email, log.NewLogger("notifier"))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create email notifier")
		} else {
			logger.Info().Str("recipient", cfg.Email.Recipient).Msg("Email notifications enabled")
			opts = append(opts, scheduler.WithNotifier(n))
		}
	}

	return scheduler.NewExtractionJob(processor, c.seasonTable(), cfg.CatalogPath, cfg.OutputDir, logger, opts...)
}
