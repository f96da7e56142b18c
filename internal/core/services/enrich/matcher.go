package enrich

import (
	"context"
	"log"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"github.com/lcalzada-xor/netrisk/internal/telemetry"
)

// Matcher attaches known CVEs to inventory services through the
// precomputed product:version lookup table.
type Matcher struct {
	inventory ports.Inventory
	findings  ports.FindingStore
	lookup    ports.CVELookup
}

// NewMatcher creates a vulnerability matcher.
func NewMatcher(inventory ports.Inventory, findings ports.FindingStore, lookup ports.CVELookup) *Matcher {
	return &Matcher{inventory: inventory, findings: findings, lookup: lookup}
}

// MatchSummary reports what a matcher run did. FindingsAttempted counts
// insert attempts, not necessarily newly created rows: re-runs hit the
// (service, CVE) conflict path and change nothing.
type MatchSummary struct {
	ServicesProcessed int
	ServicesSkipped   int
	FindingsAttempted int
}

// Run matches every service in inventory against the lookup table and
// idempotently inserts a finding per matched CVE. Services without a
// normalizable product:version key are skipped; no guessing.
func (m *Matcher) Run(ctx context.Context) (MatchSummary, error) {
	services, err := m.inventory.ListServices(ctx)
	if err != nil {
		return MatchSummary{}, err
	}

	summary := MatchSummary{ServicesProcessed: len(services)}
	for _, svc := range services {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		key := domain.VulnKey(svc.Product, svc.Version)
		if key == "" {
			summary.ServicesSkipped++
			continue
		}

		entries, err := m.lookup.Lookup(ctx, key)
		if err != nil {
			return summary, err
		}
		if len(entries) == 0 {
			continue
		}

		findings := make([]domain.Finding, 0, len(entries))
		for _, e := range entries {
			findings = append(findings, domain.Finding{
				ServiceID:   svc.ID,
				CVEID:       e.ID,
				CVSS:        e.CVSS,
				Description: e.Description,
			})
		}

		attempted, err := m.findings.InsertFindings(ctx, findings)
		if err != nil {
			return summary, err
		}
		summary.FindingsAttempted += attempted
		telemetry.FindingsMatched.Add(float64(attempted))
	}

	log.Printf("[CVE] Processed %d services, attempted %d finding inserts (%d skipped)",
		summary.ServicesProcessed, summary.FindingsAttempted, summary.ServicesSkipped)
	return summary, nil
}
