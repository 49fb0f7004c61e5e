package scraper

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// ErrFetchFailed is returned once every attempt for a URL has failed.
var ErrFetchFailed = errors.New("fetch failed")

// ScraperInterface fetches and parses one episode page.
type ScraperInterface interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Options controls request behaviour.
type Options struct {
	MaxAttempts int
	Timeout     time.Duration
	RetryDelay  time.Duration
	UserAgent   string
	// InsecureSkipVerify disables TLS certificate validation. Only for hosts whose
	// chain cannot be validated.
	InsecureSkipVerify bool
}

// DefaultOptions mirrors the stock fetch policy: 3 attempts, 30s timeout, 2s between attempts.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		Timeout:     30 * time.Second,
		RetryDelay:  2 * time.Second,
	}
}

type Scraper struct {
	opts Options
	log  zerolog.Logger
}

// NewScraper fills zero option values from DefaultOptions.
func NewScraper(opts Options, log zerolog.Logger) ScraperInterface {
	def := DefaultOptions()
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.InsecureSkipVerify {
		log.Warn().Msg("TLS certificate validation is disabled for episode requests")
	}
	return &Scraper{opts: opts, log: log}
}

func (s *Scraper) newCollector() *colly.Collector {
	options := []func(*colly.Collector){colly.AllowURLRevisit()}
	if s.opts.UserAgent != "" {
		options = append(options, colly.UserAgent(s.opts.UserAgent))
	}

	c := colly.NewCollector(options...)
	// Non-2xx responses reach OnResponse so the status can be judged here.
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(s.opts.Timeout)
	c.WithTransport(&http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: s.opts.InsecureSkipVerify},
	})
	return c
}

// Fetch retrieves url and parses it as HTML. Only a 200 response counts as
// success; other statuses and transport errors are retried after a fixed delay
// until MaxAttempts is reached, after which ErrFetchFailed is returned.
func (s *Scraper) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	c := s.newCollector()

	var (
		status int
		body   []byte
	)

	c.OnRequest(func(r *colly.Request) {
		s.log.Debug().Str("url", r.URL.String()).Msg("Visiting")
	})

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), retry.NewConstant(s.opts.RetryDelay))

	var doc *goquery.Document
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		status, body = 0, nil

		if err := c.Visit(url); err != nil {
			s.log.Warn().Err(err).Int("attempt", attempt).Int("of", s.opts.MaxAttempts).Str("url", url).Msg("Request failed")
			return retry.RetryableError(err)
		}

		if status != http.StatusOK {
			s.log.Warn().Int("status", status).Int("attempt", attempt).Int("of", s.opts.MaxAttempts).Str("url", url).Msg("Unexpected status")
			return retry.RetryableError(fmt.Errorf("status %d", status))
		}

		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return retry.RetryableError(errors.Wrap(err, "failed to parse HTML"))
		}
		doc = parsed
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(ErrFetchFailed, "%s after %d attempts: %v", url, attempt, err)
	}

	return doc, nil
}
