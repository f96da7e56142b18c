package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"github.com/lcalzada-xor/netrisk/internal/telemetry"
)

// Service turns scanner XML documents into inventory rows.
type Service struct {
	inventory ports.Inventory
}

// NewService creates an ingest service over the given inventory store.
func NewService(inventory ports.Inventory) *Service {
	return &Service{inventory: inventory}
}

// Summary reports what an ingest run did.
type Summary struct {
	RunID    string
	Files    int
	Failures int
	Records  int
	Hosts    int
	Services int
	Skipped  int
}

// IngestDocument normalizes one scan document and upserts its hosts and
// services. Repeating the call with the same document is a no-op beyond
// refreshed last_seen timestamps.
func (s *Service) IngestDocument(ctx context.Context, data []byte) (ports.UpsertSummary, int, error) {
	records, err := Normalize(data)
	if err != nil {
		return ports.UpsertSummary{}, 0, err
	}
	if len(records) == 0 {
		return ports.UpsertSummary{}, 0, nil
	}

	ipSet := make(map[string]bool)
	for _, r := range records {
		ipSet[r.IP] = true
	}
	ips := make([]string, 0, len(ipSet))
	for ip := range ipSet {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	hostIDs, err := s.inventory.UpsertHosts(ctx, ips)
	if err != nil {
		return ports.UpsertSummary{}, 0, err
	}

	summary, err := s.inventory.UpsertServices(ctx, records, hostIDs)
	if err != nil {
		return summary, len(records), err
	}

	telemetry.ServicesIngested.Add(float64(summary.Services))
	return summary, len(records), nil
}

// IngestGlob ingests every file matching the pattern, continuing past
// per-file failures. Matching no files at all is an error.
func (s *Service) IngestGlob(ctx context.Context, pattern string) (Summary, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return Summary{}, fmt.Errorf("bad glob pattern %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no files matched pattern %q", pattern)
	}
	sort.Strings(files)

	summary := Summary{RunID: uuid.NewString()}
	log.Printf("[INGEST] Run %s: %d files", summary.RunID, len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("[INGEST] Failed to read %s: %v", file, err)
			telemetry.PipelineErrors.WithLabelValues("ingest").Inc()
			summary.Failures++
			continue
		}

		upserts, records, err := s.IngestDocument(ctx, data)
		if err != nil {
			log.Printf("[INGEST] Failed on %s: %v", file, err)
			telemetry.PipelineErrors.WithLabelValues("ingest").Inc()
			summary.Failures++
			continue
		}

		summary.Files++
		summary.Records += records
		summary.Hosts += upserts.Hosts
		summary.Services += upserts.Services
		summary.Skipped += upserts.Skipped
		log.Printf("[INGEST] %s -> %d services", file, upserts.Services)
	}

	log.Printf("[INGEST] Run %s done: %d services from %d files (%d failures)",
		summary.RunID, summary.Services, summary.Files, summary.Failures)
	return summary, nil
}
