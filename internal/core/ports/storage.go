package ports

import (
	"context"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
)

// UpsertSummary reports what a bulk inventory write did.
type UpsertSummary struct {
	Hosts    int // hosts upserted
	Services int // service rows written
	Skipped  int // records dropped (unresolvable host)
}

// Inventory defines the behavior for host/service persistence.
// Both upserts are idempotent: identity conflicts are resolved at the
// store level, never surfaced as errors.
type Inventory interface {
	// UpsertHosts inserts or refreshes one host per IP, bumping last_seen,
	// and returns the IP -> host id mapping.
	UpsertHosts(ctx context.Context, ips []string) (map[string]uint, error)

	// UpsertServices writes scan records against previously resolved host
	// ids. The batch is deduplicated on (host, port, protocol) before
	// writing; later records win. Records whose IP is missing from hostIDs
	// are skipped, not fatal.
	UpsertServices(ctx context.Context, records []domain.ScanRecord, hostIDs map[string]uint) (UpsertSummary, error)

	ListHosts(ctx context.Context) ([]domain.Host, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	ServicesByHost(ctx context.Context, hostID uint) ([]domain.Service, error)

	// Close closes the storage connection.
	Close() error
}

// FindingStore defines the behavior for vulnerability finding persistence.
type FindingStore interface {
	// InsertFindings inserts findings, silently ignoring (service, CVE)
	// pairs that already exist. Returns the number of rows attempted.
	InsertFindings(ctx context.Context, findings []domain.Finding) (int, error)

	// CVEsNeedingLikelihood returns the distinct CVE ids referenced by
	// findings. With refresh=false only CVEs whose likelihood is still
	// unset are returned.
	CVEsNeedingLikelihood(ctx context.Context, refresh bool) ([]string, error)

	// UpdateLikelihood bulk-updates EPSS columns keyed by CVE id, fanning
	// one record out to every finding referencing that CVE. With
	// refresh=false only rows with a NULL likelihood are touched.
	UpdateLikelihood(ctx context.Context, records []domain.EPSSRecord, refresh bool) (int64, error)

	// ScoringRows loads findings joined with their service and host
	// context, ordered by finding id. With onlyUnscored=true, rows that
	// already carry a risk score are excluded.
	ScoringRows(ctx context.Context, onlyUnscored bool) ([]domain.ScoringRow, error)

	// UpdateRiskScores writes computed scores back, keyed by finding id.
	UpdateRiskScores(ctx context.Context, scores map[uint]float64) (int64, error)

	// AggregateMaxRisk derives service.max_risk and host.max_risk as the
	// maximum over their scored children, leaving NULL where nothing is
	// scored yet.
	AggregateMaxRisk(ctx context.Context) error

	FindingsByService(ctx context.Context, serviceID uint) ([]domain.Finding, error)
}
