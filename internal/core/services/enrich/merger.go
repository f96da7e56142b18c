package enrich

import (
	"context"
	"log"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"github.com/lcalzada-xor/netrisk/internal/telemetry"
)

// Merger attaches exploit-likelihood scores to findings. The source is
// either the local cache or the remote batched client; one per invocation.
type Merger struct {
	findings ports.FindingStore
	source   ports.LikelihoodSource
}

// NewMerger creates an exploit-likelihood merger.
func NewMerger(findings ports.FindingStore, source ports.LikelihoodSource) *Merger {
	return &Merger{findings: findings, source: source}
}

// MergeSummary reports what a merge run did.
type MergeSummary struct {
	CVEs    int   // distinct CVEs selected for enrichment
	Matched int   // CVEs the source had records for
	Updated int64 // finding rows updated
}

// Run fetches likelihood records for the referenced CVEs and bulk-updates
// findings keyed by CVE id. With refresh=false only findings that still
// lack a likelihood are filled, so an aborted run is resumed by simply
// running again. A source failure aborts the invocation with nothing
// persisted from it.
func (m *Merger) Run(ctx context.Context, refresh bool) (MergeSummary, error) {
	cves, err := m.findings.CVEsNeedingLikelihood(ctx, refresh)
	if err != nil {
		return MergeSummary{}, err
	}
	if len(cves) == 0 {
		log.Printf("[EPSS] Nothing to enrich")
		return MergeSummary{}, nil
	}

	records, err := m.source.Fetch(ctx, cves)
	if err != nil {
		telemetry.PipelineErrors.WithLabelValues("epss").Inc()
		return MergeSummary{CVEs: len(cves)}, err
	}

	list := make([]domain.EPSSRecord, 0, len(records))
	for _, rec := range records {
		list = append(list, rec)
	}

	updated, err := m.findings.UpdateLikelihood(ctx, list, refresh)
	if err != nil {
		return MergeSummary{CVEs: len(cves), Matched: len(list)}, err
	}

	telemetry.LikelihoodUpdated.Add(float64(updated))
	log.Printf("[EPSS] Updated %d findings from %d/%d CVEs", updated, len(list), len(cves))
	return MergeSummary{CVEs: len(cves), Matched: len(list), Updated: updated}, nil
}
