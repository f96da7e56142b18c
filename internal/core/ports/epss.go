package ports

import (
	"context"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
)

// LikelihoodSource resolves CVE ids to exploit-likelihood records with the
// percentile already normalized to the 0-100 scale. Implementations are a
// local cache file and the remote batched scoring API; one source is used
// per merge invocation.
type LikelihoodSource interface {
	Fetch(ctx context.Context, cves []string) (map[string]domain.EPSSRecord, error)
}
