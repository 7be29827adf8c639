// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package credentials resolves a dataset id to the connection endpoint the engine
// should use. Dataset metadata (name, active flag, optional inline endpoint) lives
// in a YAML catalog; endpoints themselves normally come from the OS keychain or
// from PANELQ_DATASET_<ID>_URL.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Dataset is one catalog entry.
type Dataset struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Active      bool   `yaml:"active"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	EndpointEnv string `yaml:"endpoint_env,omitempty"`
}

// Catalog is the set of known datasets, kept sorted by id.
type Catalog struct {
	Datasets []Dataset `yaml:"datasets"`
}

// LoadCatalog reads a catalog file. A missing file is an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse dataset catalog %s: %w", path, err)
	}
	seen := make(map[int64]bool, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.ID <= 0 {
			return nil, fmt.Errorf("dataset catalog %s: invalid id %d", path, d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("dataset catalog %s: duplicate id %d", path, d.ID)
		}
		seen[d.ID] = true
	}
	c.sort()
	return &c, nil
}

// Save writes the catalog with 0600 permissions, creating the directory if needed.
func (c *Catalog) Save(path string) error {
	c.sort()
	out, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id int64) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.ID == id {
			return d, true
		}
	}
	return Dataset{}, false
}

// Upsert replaces the entry with the same id or adds it.
func (c *Catalog) Upsert(d Dataset) {
	for i := range c.Datasets {
		if c.Datasets[i].ID == d.ID {
			c.Datasets[i] = d
			return
		}
	}
	c.Datasets = append(c.Datasets, d)
	c.sort()
}

// Active returns the active entries in id order.
func (c *Catalog) Active() []Dataset {
	var out []Dataset
	for _, d := range c.Datasets {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

func (c *Catalog) sort() {
	sort.Slice(c.Datasets, func(i, j int) bool { return c.Datasets[i].ID < c.Datasets[j].ID })
}
