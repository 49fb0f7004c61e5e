package scheduler

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"episode-scribe/feed"
	"episode-scribe/storage"
)

// previewCount is how many episodes the discovery summary lists.
const previewCount = 5

// Discoverer reads the episode feed.
type Discoverer interface {
	Discover(ctx context.Context, feedURL string) ([]storage.EpisodeReference, map[string][]string, error)
}

// DiscoveryJob reads the feed and writes the episode catalog and the season listing
type DiscoveryJob struct {
	reader      Discoverer
	seasons     feed.SeasonTable
	feedURL     string
	catalogPath string
	listingPath string
	out         io.Writer
	log         zerolog.Logger
}

// NewDiscoveryJob creates a discovery job. An empty listingPath skips the listing;
// a nil out discards the summary tables.
func NewDiscoveryJob(reader Discoverer, seasons feed.SeasonTable, feedURL, catalogPath, listingPath string, out io.Writer, log zerolog.Logger) *DiscoveryJob {
	if out == nil {
		out = io.Discard
	}
	return &DiscoveryJob{
		reader:      reader,
		seasons:     seasons,
		feedURL:     feedURL,
		catalogPath: catalogPath,
		listingPath: listingPath,
		out:         out,
		log:         log,
	}
}

// Name returns the name of the job
func (j *DiscoveryJob) Name() string {
	return "discover"
}

// Run executes the job. An unreachable feed is logged and leaves existing files
// untouched.
func (j *DiscoveryJob) Run(ctx context.Context) error {
	j.log.Info().Str("feed", j.feedURL).Msg("Fetching RSS feed")

	refs, _, err := j.reader.Discover(ctx, j.feedURL)
	if errors.Is(err, feed.ErrFeedUnavailable) {
		j.log.Warn().Err(err).Msg("Feed unavailable, nothing written")
		return nil
	}
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		j.log.Warn().Msg("Feed has no episodes, nothing written")
		return nil
	}

	catalog := feed.BuildCatalog(refs, j.seasons)

	if err := storage.SaveCatalog(j.catalogPath, catalog); err != nil {
		return err
	}
	j.log.Info().Int("episodes", len(refs)).Str("path", j.catalogPath).Msg("Catalog saved")

	if j.listingPath != "" {
		if err := storage.WriteSeasonListing(j.listingPath, catalog.BySeason); err != nil {
			return err
		}
		j.log.Info().Int("seasons", len(catalog.BySeason)).Str("path", j.listingPath).Msg("Season listing saved")
	}

	fmt.Fprintln(j.out, j.Summary(catalog))
	return nil
}

// Summary renders the per-year counts and the first few episodes.
func (j *DiscoveryJob) Summary(catalog storage.Catalog) string {
	var rows [][]string
	for _, year := range catalog.Years() {
		rows = append(rows, []string{year, j.seasons.Label(year), strconv.Itoa(len(catalog.ByYear[year]))})
	}
	rows = append(rows, []string{"Total", "", strconv.Itoa(len(catalog.AllEpisodes))})
	byYear := renderTable("Episodes by year", []string{"Year", "Season", "Episodes"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight})

	var preview [][]string
	for i, ref := range catalog.AllEpisodes {
		if i == previewCount {
			break
		}
		preview = append(preview, []string{strconv.Itoa(i + 1), ref.Title, ref.Year, ref.URL})
	}
	first := renderTable(fmt.Sprintf("First %d episodes", len(preview)), []string{"#", "Title", "Year", "URL"}, preview,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})

	return strings.Join([]string{byYear, first}, "\n\n")
}
