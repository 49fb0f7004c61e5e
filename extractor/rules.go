package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// NumberRule looks for season/episode numbers in a single text node.
type NumberRule struct {
	Name    string
	Pattern *regexp.Regexp
	// SeasonGroup and EpisodeGroup are capture indexes; 0 means not captured.
	SeasonGroup  int
	EpisodeGroup int
}

// Match returns the captured numbers, or ok=false when the node does not match.
func (r NumberRule) Match(text string) (season, episode string, ok bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	if r.SeasonGroup > 0 {
		season = m[r.SeasonGroup]
	}
	if r.EpisodeGroup > 0 {
		episode = m[r.EpisodeGroup]
	}
	return season, episode, true
}

// NumberRules are tried in order; each rule scans every text node before the next
// rule is considered.
var NumberRules = []NumberRule{
	{
		Name:         "season and episode",
		Pattern:      regexp.MustCompile(`(?i)Season\s+(\d+).*?Episode\s+(\d+)`),
		SeasonGroup:  1,
		EpisodeGroup: 2,
	},
	{
		Name:         "episode only",
		Pattern:      regexp.MustCompile(`Episode\s+(\d+)`),
		EpisodeGroup: 1,
	},
}

// TitleRules pull the episode title out of the page <title>. The first rule whose
// pattern matches wins and its first group, trimmed, is the title.
var TitleRules = []*regexp.Regexp{
	regexp.MustCompile(`- (.*?) - Women at Work`),
	regexp.MustCompile(`- (.*?) - Coaching Real Leaders`),
	regexp.MustCompile(`: (.*?) \|`),
	regexp.MustCompile(`^\s*(.*?) - (?:Women at Work|Coaching Real Leaders)\s*$`),
}

// DateSelectors locate the publication date display element.
var DateSelectors = []string{
	"span.podcast-details__date",
}

// TranscriptSelectors locate the transcript container, most specific first.
var TranscriptSelectors = []string{
	"section#transcript-section",
	"div.transcript",
}

// textNodes returns the document's text nodes in document order, skipping
// script, style and template content.
func textNodes(nodes []*html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			out = append(out, n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

// blockText joins the trimmed, non-blank text nodes of sel with newlines.
func blockText(sel *goquery.Selection) string {
	var lines []string
	for _, text := range textNodes(sel.Nodes) {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
