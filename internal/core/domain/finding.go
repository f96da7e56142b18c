package domain

// Finding associates one service with one known CVE. Identity is the
// (service, CVE) pair; inserting an existing pair is a no-op so enrichment
// can be re-run freely.
type Finding struct {
	ID          uint     `json:"id"`
	ServiceID   uint     `json:"service_id"`
	CVEID       string   `json:"cve_id"`
	CVSS        *float64 `json:"cvss,omitempty"`
	Description string   `json:"description,omitempty"`
	// Exploitability is free text from the feed; the scorer normalizes it
	// into the none/poc/public buckets.
	Exploitability string   `json:"exploitability,omitempty"`
	EPSS           *float64 `json:"epss,omitempty"`
	EPSSPercentile *float64 `json:"epss_percentile,omitempty"`
	RiskScore      *float64 `json:"risk_score,omitempty"`
}
