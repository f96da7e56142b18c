package scoring

import (
	"context"
	"log"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"github.com/lcalzada-xor/netrisk/internal/telemetry"
)

// Scorer runs the risk calculator over stored findings and maintains the
// derived max-risk rollups.
type Scorer struct {
	calc  *Calculator
	store ports.FindingStore
}

// NewScorer creates a scorer over the given finding store.
func NewScorer(calc *Calculator, store ports.FindingStore) *Scorer {
	return &Scorer{calc: calc, store: store}
}

// Options select which findings a run scores. The zero value scores only
// findings without a risk score, which makes re-runs free of drift.
type Options struct {
	// Recompute forces re-scoring of findings that already carry a score.
	Recompute bool
	// DryRun computes and counts without persisting anything.
	DryRun bool
	// Limit caps the number of findings processed; 0 means no cap. Rows
	// are ordered by finding id, so limited runs are resumable.
	Limit int
	// Filter, when set, narrows the batch to rows it accepts.
	Filter func(domain.ScoringRow) bool
}

// Summary reports what a scoring run did.
type Summary struct {
	Processed int
	Updated   int64
}

// Run scores the selected findings and writes the results back unless
// DryRun is set.
func (s *Scorer) Run(ctx context.Context, opts Options) (Summary, error) {
	rows, err := s.store.ScoringRows(ctx, !opts.Recompute)
	if err != nil {
		return Summary{}, err
	}

	scores := make(map[uint]float64)
	processed := 0
	for _, row := range rows {
		if opts.Filter != nil && !opts.Filter(row) {
			continue
		}
		scores[row.FindingID] = s.calc.Score(row)
		processed++
		if opts.Limit > 0 && processed >= opts.Limit {
			break
		}
	}

	if opts.DryRun {
		log.Printf("[SCORE] Dry run: computed %d scores, nothing written", processed)
		return Summary{Processed: processed}, nil
	}

	updated, err := s.store.UpdateRiskScores(ctx, scores)
	if err != nil {
		return Summary{Processed: processed}, err
	}

	telemetry.FindingsScored.Add(float64(updated))
	log.Printf("[SCORE] Updated %d findings", updated)
	return Summary{Processed: processed, Updated: updated}, nil
}

// Aggregate rolls the maximum finding score up to services and hosts.
// Idempotent and purely derived; safe to run after every scoring pass.
func (s *Scorer) Aggregate(ctx context.Context) error {
	if err := s.store.AggregateMaxRisk(ctx); err != nil {
		return err
	}
	log.Printf("[SCORE] Aggregated max risk into services and hosts")
	return nil
}
