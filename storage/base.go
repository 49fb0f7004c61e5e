package storage

// Unknown marks a metadata field that could not be recovered.
const Unknown = "Unknown"

// EpisodeReference is one feed entry as discovered from the RSS feed.
type EpisodeReference struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Year      string `json:"year"`
	Published string `json:"published"`
	Season    string `json:"season"`
}

// EpisodeRecord is what the extractor recovers from one episode page.
type EpisodeRecord struct {
	Season     string `json:"season"`
	Episode    string `json:"episode"`
	Year       string `json:"year"`
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
}

// HasTranscript reports whether the record is worth writing.
func (r EpisodeRecord) HasTranscript() bool {
	return r.Transcript != ""
}

// Catalog is the on-disk hand-off between the discovery and extraction stages.
type Catalog struct {
	AllEpisodes []EpisodeReference  `json:"all_episodes"`
	ByYear      map[string][]string `json:"by_year"`
	BySeason    map[string][]string `json:"by_season"`
}

// SeasonResult summarizes one season written by the extraction stage.
type SeasonResult struct {
	Season          string `json:"season"`
	EpisodesWritten int    `json:"episodes_written"`
	URLs            int    `json:"urls"`
	Path            string `json:"path"`
}
