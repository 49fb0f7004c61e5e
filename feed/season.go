package feed

import (
	"episode-scribe/storage"
)

// SeasonTable maps a publication year to a season code. It is the single source of
// season labels for both pipeline stages.
type SeasonTable map[string]string

// Code returns the season code for year; unmapped years become "S<year>".
func (t SeasonTable) Code(year string) string {
	if code, ok := t[year]; ok {
		return code
	}
	return "S" + year
}

// Label returns "<code>_<year>", the name used for buckets and artifact files.
func (t SeasonTable) Label(year string) string {
	return t.Code(year) + "_" + year
}

// GroupByYear buckets episode URLs by year, keeping feed order inside each bucket.
func GroupByYear(refs []storage.EpisodeReference) map[string][]string {
	out := make(map[string][]string)
	for _, ref := range refs {
		out[ref.Year] = append(out[ref.Year], ref.URL)
	}
	return out
}

// GroupBySeason buckets episode URLs by season label derived from each year.
func GroupBySeason(refs []storage.EpisodeReference, table SeasonTable) map[string][]string {
	out := make(map[string][]string)
	for year, urls := range GroupByYear(refs) {
		out[table.Label(year)] = urls
	}
	return out
}

// BuildCatalog assembles the catalog written by the discovery stage.
func BuildCatalog(refs []storage.EpisodeReference, table SeasonTable) storage.Catalog {
	return storage.Catalog{
		AllEpisodes: refs,
		ByYear:      GroupByYear(refs),
		BySeason:    GroupBySeason(refs, table),
	}
}
