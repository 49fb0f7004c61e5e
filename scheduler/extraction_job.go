package scheduler

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"episode-scribe/feed"
	"episode-scribe/storage"
)

// SeasonProcessor extracts and writes one season.
type SeasonProcessor interface {
	Process(ctx context.Context, seasonName string, urls []string, outputDir string) (storage.SeasonResult, error)
}

// Notifier reports the outcome of an extraction run.
type Notifier interface {
	NotifySeasonsWritten(results []storage.SeasonResult) error
}

// ExtractionJob writes one transcript artifact per season in the catalog
type ExtractionJob struct {
	processor   SeasonProcessor
	seasons     feed.SeasonTable
	catalogPath string
	outputDir   string

	only         map[string]bool
	manualSeason string
	manualURLs   []string

	notifier Notifier
	results  []storage.SeasonResult
	out      io.Writer
	log      zerolog.Logger
}

// ExtractionOption customizes an ExtractionJob.
type ExtractionOption func(*ExtractionJob)

// OnlySeasons restricts a catalog run to the given season labels.
func OnlySeasons(labels ...string) ExtractionOption {
	return func(j *ExtractionJob) {
		if len(labels) == 0 {
			return
		}
		j.only = make(map[string]bool, len(labels))
		for _, label := range labels {
			j.only[label] = true
		}
	}
}

// ManualURLs processes urls as season instead of reading the catalog.
func ManualURLs(season string, urls []string) ExtractionOption {
	return func(j *ExtractionJob) {
		j.manualSeason = season
		j.manualURLs = urls
	}
}

// WithNotifier mails a summary after each run.
func WithNotifier(n Notifier) ExtractionOption {
	return func(j *ExtractionJob) { j.notifier = n }
}

// WithOutput receives the results table.
func WithOutput(w io.Writer) ExtractionOption {
	return func(j *ExtractionJob) { j.out = w }
}

// NewExtractionJob creates an extraction job
func NewExtractionJob(processor SeasonProcessor, seasons feed.SeasonTable, catalogPath, outputDir string, log zerolog.Logger, opts ...ExtractionOption) *ExtractionJob {
	j := &ExtractionJob{
		processor:   processor,
		seasons:     seasons,
		catalogPath: catalogPath,
		outputDir:   outputDir,
		out:         io.Discard,
		log:         log,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the name of the job
func (j *ExtractionJob) Name() string {
	return "extract"
}

type seasonPlan struct {
	label string
	urls  []string
}

func (j *ExtractionJob) plan() ([]seasonPlan, error) {
	if j.manualSeason != "" {
		return []seasonPlan{{label: j.manualSeason, urls: j.manualURLs}}, nil
	}

	catalog, err := storage.LoadCatalog(j.catalogPath)
	if err != nil {
		return nil, err
	}

	var plans []seasonPlan
	for _, year := range catalog.Years() {
		urls := catalog.ByYear[year]
		if len(urls) == 0 {
			continue
		}
		label := j.seasons.Label(year)
		if j.only != nil && !j.only[label] {
			continue
		}
		plans = append(plans, seasonPlan{label: label, urls: urls})
	}
	return plans, nil
}

// Run executes the job. A failing season is logged and the remaining seasons
// still run; a missing or unreadable catalog fails the run.
func (j *ExtractionJob) Run(ctx context.Context) error {
	j.results = nil

	plans, err := j.plan()
	if err != nil {
		return errors.Wrap(err, "extraction needs a catalog, run discover first")
	}
	if len(plans) == 0 {
		j.log.Warn().Str("catalog", j.catalogPath).Msg("No seasons to process")
		return nil
	}

	for _, p := range plans {
		j.log.Info().Str("season", p.label).Int("episodes", len(p.urls)).Msg("Processing season")

		result, err := j.processor.Process(ctx, p.label, p.urls, j.outputDir)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "stopped during season %s", p.label)
		}
		if err != nil {
			j.log.Error().Err(err).Str("season", p.label).Msg("Season failed")
			continue
		}
		if result.EpisodesWritten == 0 {
			j.log.Warn().Str("season", p.label).Msg("Season skipped, no transcripts")
		}
		j.results = append(j.results, result)
	}

	fmt.Fprintln(j.out, j.Summary())

	if j.notifier != nil {
		if err := j.notifier.NotifySeasonsWritten(j.results); err != nil {
			j.log.Error().Err(err).Msg("Failed to send notification")
		}
	}
	return nil
}

// Results returns the outcome of the last run.
func (j *ExtractionJob) Results() []storage.SeasonResult {
	return j.results
}

// Summary renders the last run's results.
func (j *ExtractionJob) Summary() string {
	var rows [][]string
	written := 0
	for _, r := range j.results {
		path := r.Path
		if path == "" {
			path = "-"
		}
		rows = append(rows, []string{r.Season, strconv.Itoa(r.EpisodesWritten), strconv.Itoa(r.URLs), path})
		written += r.EpisodesWritten
	}
	rows = append(rows, []string{"Total", strconv.Itoa(written), "", ""})
	return renderTable("Extraction results", []string{"Season", "Written", "URLs", "File"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft})
}
