package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCatalogSaveLoad(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "data", "episodes_urls.json")

	catalog := Catalog{
		AllEpisodes: []EpisodeReference{
			{URL: "https://hbr.org/podcast/2024/03/b", Title: "B", Year: "2024", Published: "Tue, 05 Mar 2024", Season: "S4_2024"},
			{URL: "https://hbr.org/podcast/2023/01/a", Title: "A", Year: "2023", Season: "S3_2023"},
		},
		ByYear: map[string][]string{
			"2024": {"https://hbr.org/podcast/2024/03/b"},
			"2023": {"https://hbr.org/podcast/2023/01/a"},
		},
		BySeason: map[string][]string{
			"S4_2024": {"https://hbr.org/podcast/2024/03/b"},
			"S3_2023": {"https://hbr.org/podcast/2023/01/a"},
		},
	}

	if err := SaveCatalog(path, catalog); err != nil {
		t.Fatalf("Failed to save catalog: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Temporary catalog file was left behind")
	}

	loaded, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	if !reflect.DeepEqual(*loaded, catalog) {
		t.Errorf("Loaded catalog differs:\n got %+v\nwant %+v", *loaded, catalog)
	}

	if got := loaded.Years(); !reflect.DeepEqual(got, []string{"2023", "2024"}) {
		t.Errorf("Expected sorted years, got %v", got)
	}
}

func TestLoadCatalogMissing(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Expected error for missing catalog")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadCatalogCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episodes_urls.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("Expected error for corrupt catalog")
	}
}
