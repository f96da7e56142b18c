package epss

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
)

const (
	// DefaultEndpoint is the public exploit-likelihood scoring API.
	DefaultEndpoint = "https://api.first.org/data/v1/epss"

	// BatchSize bounds how many CVE ids go into one request.
	BatchSize = 100

	// DefaultPause is the courtesy delay between batches; it paces
	// requests against the public API and is not a correctness knob.
	DefaultPause = 500 * time.Millisecond
)

// Client implements ports.LikelihoodSource against the remote scoring API.
// CVE ids are queried comma-joined in fixed-size batches; any non-2xx batch
// response aborts the whole fetch, so callers re-run with fill-missing
// semantics instead of persisting partial results from a failed call.
type Client struct {
	endpoint string
	pause    time.Duration
	http     *http.Client
}

// NewClient creates a remote likelihood client. Empty endpoint and zero
// pause select the defaults.
func NewClient(endpoint string, pause time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if pause <= 0 {
		pause = DefaultPause
	}
	return &Client{
		endpoint: endpoint,
		pause:    pause,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch queries likelihood records for the given CVE ids.
func (c *Client) Fetch(ctx context.Context, cves []string) (map[string]domain.EPSSRecord, error) {
	out := make(map[string]domain.EPSSRecord, len(cves))

	for start := 0; start < len(cves); start += BatchSize {
		end := start + BatchSize
		if end > len(cves) {
			end = len(cves)
		}
		chunk := cves[start:end]

		records, err := c.fetchBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		for k, v := range records {
			out[k] = v
		}

		if end < len(cves) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pause):
			}
		}
	}

	log.Printf("[EPSS] Fetched %d/%d likelihood records", len(out), len(cves))
	return out, nil
}

func (c *Client) fetchBatch(ctx context.Context, cves []string) (map[string]domain.EPSSRecord, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("cve", strings.Join(cves, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toDomain(records), nil
}

// Ensure interface compliance
var _ ports.LikelihoodSource = (*Client)(nil)
