package cve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
)

// CacheLookup implements ports.CVELookup over an in-memory copy of a JSON
// cache file mapping "<product>:<version-core>" keys to CVE entries. A
// missing or unreadable cache file is fatal for the invocation: matching
// cannot proceed without a mapping source.
type CacheLookup struct {
	entries map[string][]domain.CVEEntry
}

// NewCacheLookup loads the cache file, lower-casing every key.
func NewCacheLookup(path string) (*CacheLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CVE cache: %w", err)
	}

	var raw map[string][]domain.CVEEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse CVE cache: %w", err)
	}

	entries := make(map[string][]domain.CVEEntry, len(raw))
	for k, v := range raw {
		entries[strings.ToLower(strings.TrimSpace(k))] = v
	}

	return &CacheLookup{entries: entries}, nil
}

// Lookup returns the cached CVEs for a normalized key.
func (c *CacheLookup) Lookup(_ context.Context, key string) ([]domain.CVEEntry, error) {
	return c.entries[strings.ToLower(strings.TrimSpace(key))], nil
}

// Len returns the number of keys in the cache.
func (c *CacheLookup) Len() int {
	return len(c.entries)
}

func (c *CacheLookup) Close() error { return nil }

// Ensure interface compliance
var _ ports.CVELookup = (*CacheLookup)(nil)
