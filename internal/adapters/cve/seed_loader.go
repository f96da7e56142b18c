package cve

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
)

// SeedLoader loads product:version CVE cache files into a lookup store.
type SeedLoader struct {
	store ports.CVEStore
}

// NewSeedLoader creates a new seed loader.
func NewSeedLoader(store ports.CVEStore) *SeedLoader {
	return &SeedLoader{store: store}
}

// LoadFromFile loads a JSON cache file keyed by "<product>:<version-core>".
func (s *SeedLoader) LoadFromFile(ctx context.Context, filepath string) error {
	log.Printf("[CVE-SEED] Loading CVE cache from %s", filepath)

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var cache map[string][]domain.CVEEntry
	if err := json.Unmarshal(data, &cache); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	loaded := 0
	failed := 0
	for key, entries := range cache {
		if err := s.store.UpsertEntries(ctx, key, entries); err != nil {
			log.Printf("[CVE-SEED] Failed to load %s: %v", key, err)
			failed++
			continue
		}
		loaded++
	}

	log.Printf("[CVE-SEED] Loaded %d keys (%d failed)", loaded, failed)
	if failed > 0 && loaded == 0 {
		return fmt.Errorf("no keys loaded from %s", filepath)
	}
	return nil
}

// LoadFromMultipleFiles loads several cache files in order.
func (s *SeedLoader) LoadFromMultipleFiles(ctx context.Context, filepaths []string) error {
	succeeded := 0
	for _, fp := range filepaths {
		if err := s.LoadFromFile(ctx, fp); err != nil {
			log.Printf("[CVE-SEED] Failed to load %s: %v", fp, err)
			continue
		}
		succeeded++
	}

	log.Printf("[CVE-SEED] Loaded from %d/%d files", succeeded, len(filepaths))
	return nil
}
