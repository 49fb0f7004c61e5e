package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// SaveCatalog writes the catalog as indented JSON. The file is replaced atomically
// so a failed run never leaves a partial catalog behind.
func SaveCatalog(path string, catalog Catalog) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "failed to create catalog directory")
		}
	}

	b, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode catalog")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "failed to write catalog")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to replace catalog")
	}
	return nil
}

// LoadCatalog reads a catalog written by SaveCatalog. A missing file yields an error
// matching os.ErrNotExist.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}

	var catalog Catalog
	if err := json.Unmarshal(b, &catalog); err != nil {
		return nil, errors.Wrapf(err, "failed to decode catalog %s", path)
	}
	return &catalog, nil
}

// Years returns the catalog's years in ascending order.
func (c *Catalog) Years() []string {
	years := make([]string, 0, len(c.ByYear))
	for year := range c.ByYear {
		years = append(years, year)
	}
	sort.Strings(years)
	return years
}
