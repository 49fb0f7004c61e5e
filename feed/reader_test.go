package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Coaching Real Leaders</title>
  <item>
    <title>How Do I Handle Uncertainty?</title>
    <link>https://hbr.org/podcast/2025/11/how-do-i-handle-uncertainty</link>
    <pubDate>Mon, 03 Nov 2025 05:00:00 -0500</pubDate>
  </item>
  <item>
    <title>Leading From the Middle</title>
    <link>https://hbr.org/podcast/2021/06/leading-from-the-middle</link>
    <pubDate>Mon, 07 Jan 2019 05:00:00 -0500</pubDate>
  </item>
  <item>
    <title>No Date In Path</title>
    <link>https://hbr.org/podcast/no-date</link>
    <pubDate>Mon, 05 Jun 2023 05:00:00 -0500</pubDate>
  </item>
  <item>
    <title>Nothing Known</title>
    <link>https://hbr.org/podcast/mystery</link>
  </item>
  <item>
    <title>Another 2025</title>
    <link>https://hbr.org/podcast/2025/10/another</link>
  </item>
</channel>
</rss>`

func defaultTable() SeasonTable {
	return SeasonTable{"2021": "S1", "2022": "S2", "2023": "S3", "2024": "S4", "2025": "S5"}
}

func TestYearOf(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		published string
		want      string
	}{
		{"url wins over published", "https://hbr.org/podcast/2021/06/x", "Mon, 07 Jan 2019", "2021"},
		{"published fallback", "https://hbr.org/podcast/x", "Tue, 05 Mar 2024 05:00:00", "2024"},
		{"unknown", "https://hbr.org/podcast/x", "", "Unknown"},
		{"year must sit between slashes", "https://hbr.org/podcast/episode-2020", "", "Unknown"},
		{"first segment wins", "https://hbr.org/2022/podcast/2023/x", "", "2022"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearOf(tt.url, tt.published); got != tt.want {
				t.Errorf("YearOf(%q, %q) = %q, want %q", tt.url, tt.published, got, tt.want)
			}
		})
	}
}

func TestSeasonTableLabel(t *testing.T) {
	table := defaultTable()

	tests := []struct {
		year string
		want string
	}{
		{"2021", "S1_2021"},
		{"2025", "S5_2025"},
		{"2019", "S2019_2019"},
		{"Unknown", "SUnknown_Unknown"},
	}

	for _, tt := range tests {
		if got := table.Label(tt.year); got != tt.want {
			t.Errorf("Label(%q) = %q, want %q", tt.year, got, tt.want)
		}
		if again := table.Label(tt.year); again != table.Label(tt.year) {
			t.Errorf("Label(%q) is not stable", tt.year)
		}
	}
}

func TestDiscover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	reader := NewReader(Options{UserAgent: "test"}, defaultTable(), zerolog.Nop())
	refs, bySeason, err := reader.Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}

	if len(refs) != 5 {
		t.Fatalf("Expected 5 episodes, got %d", len(refs))
	}

	wantYears := []string{"2025", "2021", "2023", "Unknown", "2025"}
	for i, ref := range refs {
		if ref.Year != wantYears[i] {
			t.Errorf("refs[%d].Year = %q, want %q", i, ref.Year, wantYears[i])
		}
	}
	if refs[0].Title != "How Do I Handle Uncertainty?" {
		t.Errorf("Unexpected title: %q", refs[0].Title)
	}
	if refs[0].Published == "" {
		t.Errorf("Expected raw published string to be kept")
	}
	if refs[3].Published != "" {
		t.Errorf("Expected empty published for entry without date, got %q", refs[3].Published)
	}
	if refs[1].Season != "S1_2021" {
		t.Errorf("Unexpected season label: %q", refs[1].Season)
	}

	wantS5 := []string{
		"https://hbr.org/podcast/2025/11/how-do-i-handle-uncertainty",
		"https://hbr.org/podcast/2025/10/another",
	}
	if !reflect.DeepEqual(bySeason["S5_2025"], wantS5) {
		t.Errorf("S5_2025 = %v, want %v", bySeason["S5_2025"], wantS5)
	}
	if len(bySeason["SUnknown_Unknown"]) != 1 {
		t.Errorf("Expected one unknown-year episode, got %v", bySeason["SUnknown_Unknown"])
	}

	total := 0
	for _, urls := range bySeason {
		total += len(urls)
	}
	if total != len(refs) {
		t.Errorf("Every episode must land in exactly one bucket: %d vs %d", total, len(refs))
	}
}

func TestDiscoverFeedUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	reader := NewReader(Options{}, defaultTable(), zerolog.Nop())
	refs, bySeason, err := reader.Discover(context.Background(), server.URL)
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("Expected ErrFeedUnavailable, got %v", err)
	}
	if len(refs) != 0 || len(bySeason) != 0 {
		t.Errorf("Expected empty results, got %d refs and %d seasons", len(refs), len(bySeason))
	}
}

func TestDiscoverEmptyFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`))
	}))
	defer server.Close()

	reader := NewReader(Options{}, defaultTable(), zerolog.Nop())
	refs, bySeason, err := reader.Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error for an empty feed, got %v", err)
	}
	if len(refs) != 0 || len(bySeason) != 0 {
		t.Errorf("Expected empty results")
	}
}

func TestBuildCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	reader := NewReader(Options{}, defaultTable(), zerolog.Nop())
	refs, bySeason, err := reader.Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}

	catalog := BuildCatalog(refs, defaultTable())
	if !reflect.DeepEqual(catalog.BySeason, bySeason) {
		t.Errorf("Catalog season grouping must match Discover's")
	}
	for year, urls := range catalog.ByYear {
		if !reflect.DeepEqual(catalog.BySeason[defaultTable().Label(year)], urls) {
			t.Errorf("Season bucket for %s is not the year bucket", year)
		}
	}
}
