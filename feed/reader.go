package feed

import (
	"context"
	"crypto/tls"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"episode-scribe/storage"
)

// ErrFeedUnavailable is returned when the feed cannot be fetched or parsed.
var ErrFeedUnavailable = errors.New("feed unavailable")

var (
	urlYearPattern       = regexp.MustCompile(`/(\d{4})/`)
	publishedYearPattern = regexp.MustCompile(`\d{4}`)
)

// Options configures the feed HTTP client.
type Options struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
}

// Reader turns an RSS feed into episode references.
type Reader struct {
	parser  *gofeed.Parser
	seasons SeasonTable
	log     zerolog.Logger
}

// NewReader creates a Reader. A zero timeout means 30 seconds.
func NewReader(opts Options, seasons SeasonTable, log zerolog.Logger) *Reader {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if opts.InsecureSkipVerify {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = opts.UserAgent

	return &Reader{
		parser:  parser,
		seasons: seasons,
		log:     log,
	}
}

// Discover fetches feedURL and returns its episodes in feed order together with
// their URLs grouped by season label. On failure the cause is logged and empty
// results are returned with an error wrapping ErrFeedUnavailable.
func (r *Reader) Discover(ctx context.Context, feedURL string) ([]storage.EpisodeReference, map[string][]string, error) {
	r.log.Info().Str("feed", feedURL).Msg("Reading episodes from feed")

	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		r.log.Error().Err(err).Str("feed", feedURL).Msg("Failed to read feed")
		return nil, nil, errors.Wrapf(ErrFeedUnavailable, "%s: %v", feedURL, err)
	}

	if len(parsed.Items) == 0 {
		r.log.Warn().Str("feed", feedURL).Msg("Feed has no entries")
		return nil, nil, nil
	}

	refs := References(parsed, r.seasons)
	r.log.Info().Int("episodes", len(refs)).Msg("Found episodes")

	return refs, GroupBySeason(refs, r.seasons), nil
}

// References converts parsed feed items into episode references.
func References(parsed *gofeed.Feed, seasons SeasonTable) []storage.EpisodeReference {
	refs := make([]storage.EpisodeReference, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		year := YearOf(link, item.Published)
		refs = append(refs, storage.EpisodeReference{
			URL:       link,
			Title:     item.Title,
			Year:      year,
			Published: item.Published,
			Season:    seasons.Label(year),
		})
	}
	return refs
}

// YearOf derives the publication year: a /YYYY/ path segment in the URL wins over
// the first four-digit run in the published string.
func YearOf(url, published string) string {
	if m := urlYearPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := publishedYearPattern.FindString(published); m != "" {
		return m
	}
	return storage.Unknown
}
