// SPDX-License-Identifier: MIT

// Package markets holds the catalog of tracked market segments and their
// companies. A built-in catalog ships embedded; an operator-supplied YAML
// file can replace it and is hot-reloaded on change.
package markets

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// ErrUnknownSegment is returned for segments not present in the catalog.
var ErrUnknownSegment = errors.New("unknown market segment")

// Company is one catalog entry. Ticker "Private" marks companies without a
// public listing; they are kept for display but never fetched.
type Company struct {
	Name   string `yaml:"name" json:"name"`
	Ticker string `yaml:"ticker" json:"ticker"`
}

// Public reports whether the company has a fetchable ticker.
func (c Company) Public() bool {
	return c.Ticker != "" && !strings.EqualFold(c.Ticker, "Private")
}

type catalogFile struct {
	Segments []struct {
		Name      string    `yaml:"name"`
		Companies []Company `yaml:"companies"`
	} `yaml:"segments"`
}

// snapshot is an immutable parsed catalog; Catalog swaps snapshots on reload.
type snapshot struct {
	order    []string
	segments map[string][]Company
}

// Catalog is a concurrency-safe view over the current segment catalog.
type Catalog struct {
	mu   sync.RWMutex
	snap *snapshot
}

// Default returns the embedded catalog. The embedded file is compiled in, so
// a parse failure is a programming error and panics.
func Default() *Catalog {
	snap, err := parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return &Catalog{snap: snap}
}

// LoadFile builds a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	snap, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &Catalog{snap: snap}, nil
}

func parse(data []byte) (*snapshot, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Segments) == 0 {
		return nil, fmt.Errorf("catalog has no segments")
	}

	snap := &snapshot{segments: make(map[string][]Company, len(f.Segments))}
	for _, seg := range f.Segments {
		name := strings.TrimSpace(seg.Name)
		if name == "" {
			return nil, fmt.Errorf("segment with empty name")
		}
		if _, dup := snap.segments[name]; dup {
			return nil, fmt.Errorf("duplicate segment %q", name)
		}
		if len(seg.Companies) == 0 {
			return nil, fmt.Errorf("segment %q has no companies", name)
		}
		companies := make([]Company, 0, len(seg.Companies))
		for _, c := range seg.Companies {
			if strings.TrimSpace(c.Name) == "" {
				return nil, fmt.Errorf("segment %q has a company with empty name", name)
			}
			c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
			if strings.EqualFold(c.Ticker, "PRIVATE") {
				c.Ticker = "Private"
			}
			companies = append(companies, c)
		}
		snap.order = append(snap.order, name)
		snap.segments[name] = companies
	}
	sort.Strings(snap.order)
	return snap, nil
}

func (c *Catalog) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Segments returns all segment names, sorted.
func (c *Catalog) Segments() []string {
	snap := c.current()
	out := make([]string, len(snap.order))
	copy(out, snap.order)
	return out
}

// Companies returns the companies of one segment.
func (c *Catalog) Companies(segment string) ([]Company, error) {
	snap := c.current()
	companies, ok := snap.segments[segment]
	if !ok {
		return nil, fmt.Errorf("%q: %w", segment, ErrUnknownSegment)
	}
	out := make([]Company, len(companies))
	copy(out, companies)
	return out, nil
}

// PublicCompanies returns the fetchable companies of one segment.
func (c *Catalog) PublicCompanies(segment string) ([]Company, error) {
	all, err := c.Companies(segment)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, comp := range all {
		if comp.Public() {
			out = append(out, comp)
		}
	}
	return out, nil
}

// Tickers returns every distinct public ticker across all segments, sorted.
func (c *Catalog) Tickers() []string {
	snap := c.current()
	seen := make(map[string]struct{})
	var out []string
	for _, companies := range snap.segments {
		for _, comp := range companies {
			if !comp.Public() {
				continue
			}
			if _, dup := seen[comp.Ticker]; dup {
				continue
			}
			seen[comp.Ticker] = struct{}{}
			out = append(out, comp.Ticker)
		}
	}
	sort.Strings(out)
	return out
}

// Lookup finds a public company by ticker and the segments it appears in.
func (c *Catalog) Lookup(ticker string) (Company, []string, bool) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	snap := c.current()
	var (
		found    Company
		segments []string
	)
	for _, name := range snap.order {
		for _, comp := range snap.segments[name] {
			if comp.Ticker == ticker {
				found = comp
				segments = append(segments, name)
				break
			}
		}
	}
	return found, segments, len(segments) > 0
}

// Reload replaces the catalog from a file; on error the previous catalog
// stays in effect.
func (c *Catalog) Reload(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	snap, err := parse(data)
	if err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}
