package epss

import (
	"context"
	"fmt"
	"os"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
)

// CacheSource implements ports.LikelihoodSource over a local JSON cache
// file for offline runs. The file holds either a bare array of records or
// an object wrapping the array under "data".
type CacheSource struct {
	records map[string]domain.EPSSRecord
}

// NewCacheSource loads the cache file. A missing file is an error: the
// merge cannot proceed without a likelihood source.
func NewCacheSource(path string) (*CacheSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read EPSS cache: %w", err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EPSS cache: %w", err)
	}

	return &CacheSource{records: toDomain(records)}, nil
}

// Fetch returns the cached records for the requested CVEs; ids absent from
// the cache are simply omitted.
func (c *CacheSource) Fetch(_ context.Context, cves []string) (map[string]domain.EPSSRecord, error) {
	out := make(map[string]domain.EPSSRecord, len(cves))
	for _, cve := range cves {
		if rec, ok := c.records[cve]; ok {
			out[cve] = rec
		}
	}
	return out, nil
}

// Ensure interface compliance
var _ ports.LikelihoodSource = (*CacheSource)(nil)
