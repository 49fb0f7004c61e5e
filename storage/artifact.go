package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gingfrederik/docx"
	"github.com/pkg/errors"
)

// Banner separates episode headers in season artifacts and listings.
var Banner = strings.Repeat("=", 80)

// FormatSeasonArtifact renders records in the banner-delimited text layout.
func FormatSeasonArtifact(records []EpisodeRecord) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString("\n" + Banner + "\n")
		sb.WriteString(fmt.Sprintf("Episode %s: %s\n", r.Episode, r.Title))
		sb.WriteString(fmt.Sprintf("Year: %s\n", r.Year))
		sb.WriteString(Banner + "\n\n")
		sb.WriteString(r.Transcript)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// WriteSeasonArtifact writes the text artifact for one season, creating the
// output directory if needed.
func WriteSeasonArtifact(path string, records []EpisodeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	if err := os.WriteFile(path, []byte(FormatSeasonArtifact(records)), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write season artifact %s", path)
	}
	return nil
}

// WriteSeasonDocx writes the same records as a Word document.
func WriteSeasonDocx(path, season string, records []EpisodeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	f := docx.NewFile()
	f.AddParagraph().AddText(season).Size(20)
	f.AddParagraph()

	for _, r := range records {
		f.AddParagraph().AddText(fmt.Sprintf("Episode %s: %s", r.Episode, r.Title)).Size(16)
		f.AddParagraph().AddText(fmt.Sprintf("Year: %s", r.Year)).Size(10).Color("808080")
		for _, line := range strings.Split(r.Transcript, "\n") {
			f.AddParagraph().AddText(line)
		}
		f.AddParagraph()
	}

	if err := f.Save(path); err != nil {
		return errors.Wrapf(err, "failed to write season document %s", path)
	}
	return nil
}

// WriteSeasonListing writes the human-editable list of URLs per season label.
func WriteSeasonListing(path string, bySeason map[string][]string) error {
	labels := make([]string, 0, len(bySeason))
	for label := range bySeason {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var sb strings.Builder
	sb.WriteString("# Episodes by season\n")
	sb.WriteString("# Hand-edit freely; the extract stage reads the JSON catalog, not this file.\n\n")
	for _, label := range labels {
		urls := bySeason[label]
		sb.WriteString("\n" + Banner + "\n")
		sb.WriteString(fmt.Sprintf("%s (%d episodes)\n", label, len(urls)))
		sb.WriteString(Banner + "\n")
		for _, u := range urls {
			sb.WriteString(u + "\n")
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create listing directory")
		}
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write listing %s", path)
	}
	return nil
}
