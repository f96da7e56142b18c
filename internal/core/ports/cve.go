package ports

import (
	"context"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
)

// CVELookup resolves a normalized "<product>:<version-core>" key to the
// known CVEs for that product release.
type CVELookup interface {
	Lookup(ctx context.Context, key string) ([]domain.CVEEntry, error)
	Close() error
}

// CVEStore is a CVELookup that can also be (re)seeded from a cache file.
type CVEStore interface {
	CVELookup

	// UpsertEntries replaces or inserts the entries recorded under key.
	UpsertEntries(ctx context.Context, key string, entries []domain.CVEEntry) error

	// Count returns the number of lookup rows stored.
	Count(ctx context.Context) (int, error)
}
