// Package extractor recovers episode metadata and transcript text from an episode
// page. Every field is resolved by its own ordered rule list so a markup change on
// the source site only breaks the rule that depended on it.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"episode-scribe/storage"
)

// UnknownTitle is used when the page has no <title> element.
const UnknownTitle = "Unknown Title"

// Extract builds an EpisodeRecord from a parsed episode page. It never fails:
// missing fields become storage.Unknown (or UnknownTitle), and a page without a
// transcript container yields an empty transcript.
func Extract(doc *goquery.Document, sourceURL string) storage.EpisodeRecord {
	season, episode := Numbers(doc)
	return storage.EpisodeRecord{
		Season:     season,
		Episode:    episode,
		Year:       Year(doc),
		Title:      Title(doc),
		Transcript: Transcript(doc),
	}
}

// Numbers returns the season and episode numbers found in the page text.
func Numbers(doc *goquery.Document) (season, episode string) {
	season, episode = storage.Unknown, storage.Unknown
	nodes := textNodes(doc.Nodes)

	for _, rule := range NumberRules {
		for _, text := range nodes {
			s, e, ok := rule.Match(text)
			if !ok {
				continue
			}
			if s != "" {
				season = s
			}
			if e != "" {
				episode = e
			}
			return season, episode
		}
	}
	return season, episode
}

// Year returns the last word of the publication date element.
func Year(doc *goquery.Document) string {
	for _, selector := range DateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		fields := strings.Fields(sel.Text())
		if len(fields) == 0 {
			continue
		}
		return fields[len(fields)-1]
	}
	return storage.Unknown
}

// Title returns the episode title derived from the page <title>.
func Title(doc *goquery.Document) string {
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return UnknownTitle
	}

	raw := sel.Text()
	for _, pattern := range TitleRules {
		m := pattern.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		// The first matching rule decides; a blank capture keeps the whole title.
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
		break
	}
	return strings.TrimSpace(raw)
}

// Transcript returns the transcript container's text, one text run per line.
func Transcript(doc *goquery.Document) string {
	for _, selector := range TranscriptSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return blockText(sel)
		}
	}
	return ""
}
