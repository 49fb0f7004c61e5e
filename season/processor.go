// Package season drives the fetcher and extractor over one season's URLs and
// writes the season artifact.
package season

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"episode-scribe/extractor"
	"episode-scribe/scraper"
	"episode-scribe/storage"
)

// ExtractFunc turns a parsed page into a record.
type ExtractFunc func(doc *goquery.Document, sourceURL string) storage.EpisodeRecord

// Processor processes seasons sequentially.
type Processor struct {
	fetcher   scraper.ScraperInterface
	extract   ExtractFunc
	pace      time.Duration
	writeDocx bool
	sleep     func(ctx context.Context, d time.Duration) error
	log       zerolog.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithPaceDelay sets the wait between consecutive URLs.
func WithPaceDelay(d time.Duration) Option {
	return func(p *Processor) { p.pace = d }
}

// WithDocx also writes a .docx copy of each season artifact.
func WithDocx(enabled bool) Option {
	return func(p *Processor) { p.writeDocx = enabled }
}

// WithExtractor replaces extractor.Extract.
func WithExtractor(fn ExtractFunc) Option {
	return func(p *Processor) { p.extract = fn }
}

// NewProcessor returns a Processor with a 1s pace delay.
func NewProcessor(fetcher scraper.ScraperInterface, log zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		fetcher: fetcher,
		extract: extractor.Extract,
		pace:    time.Second,
		sleep:   sleepContext,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ArtifactPath is where the text artifact of a season is written.
func ArtifactPath(outputDir, seasonName string) string {
	return filepath.Join(outputDir, seasonName+".txt")
}

// ProcessSeason fetches every URL in order, keeps the records that carry a
// transcript and writes them, sorted by episode number, to
// <outputDir>/<seasonName>.txt. It reports false without writing anything when no
// episode yielded a transcript. Fetch failures skip the episode; only artifact
// write errors and context cancellation are returned.
func (p *Processor) ProcessSeason(ctx context.Context, seasonName string, urls []string, outputDir string) (bool, error) {
	result, err := p.Process(ctx, seasonName, urls, outputDir)
	if err != nil {
		return false, err
	}
	return result.EpisodesWritten > 0, nil
}

// Process is ProcessSeason returning the full summary. Path is empty when
// nothing was written.
func (p *Processor) Process(ctx context.Context, seasonName string, urls []string, outputDir string) (storage.SeasonResult, error) {
	result := storage.SeasonResult{Season: seasonName, URLs: len(urls)}

	records, err := p.collect(ctx, seasonName, urls)
	if err != nil {
		return result, err
	}

	if len(records) == 0 {
		p.log.Warn().Str("season", seasonName).Int("urls", len(urls)).Msg("No transcripts found")
		return result, nil
	}

	SortRecords(records)

	path := ArtifactPath(outputDir, seasonName)
	if err := storage.WriteSeasonArtifact(path, records); err != nil {
		return result, errors.Wrapf(err, "season %s", seasonName)
	}

	result.EpisodesWritten = len(records)
	result.Path = path

	if p.writeDocx {
		docxPath := filepath.Join(outputDir, seasonName+".docx")
		if err := storage.WriteSeasonDocx(docxPath, seasonName, records); err != nil {
			p.log.Error().Err(err).Str("season", seasonName).Str("path", docxPath).Msg("Failed to write season document")
		}
	}

	p.log.Info().
		Str("season", seasonName).
		Int("episodes", len(records)).
		Int("urls", len(urls)).
		Str("path", path).
		Msg("Season written")
	return result, nil
}

// collect returns the records with a transcript, in URL order.
func (p *Processor) collect(ctx context.Context, seasonName string, urls []string) ([]storage.EpisodeRecord, error) {
	var records []storage.EpisodeRecord

	for i, url := range urls {
		if i > 0 && p.pace > 0 {
			if err := p.sleep(ctx, p.pace); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logger := p.log.With().Str("season", seasonName).Str("url", url).Logger()
		logger.Info().Msgf("Processing %d/%d", i+1, len(urls))

		doc, err := p.fetcher.Fetch(ctx, url)
		if err != nil {
			logger.Error().Err(err).Msg("Skipping episode")
			continue
		}

		record := p.extract(doc, url)
		if !record.HasTranscript() {
			logger.Warn().Msg("No transcript found")
			continue
		}

		logger.Info().
			Str("episode", record.Episode).
			Str("title", record.Title).
			Str("transcript", humanize.Bytes(uint64(len(record.Transcript)))).
			Msg("Transcript extracted")
		records = append(records, record)
	}

	return records, nil
}

// SortRecords orders records by numeric episode; non-numeric episodes go last and
// ties keep their original order.
func SortRecords(records []storage.EpisodeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return episodeKey(records[i].Episode) < episodeKey(records[j].Episode)
	})
}

func episodeKey(episode string) int {
	n, err := strconv.Atoi(episode)
	if err != nil || n < 0 {
		return math.MaxInt
	}
	return n
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
