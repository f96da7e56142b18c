package domain

import "time"

// Criticality classifies how important an asset is to its owner.
// Unknown values are treated as CriticalityMedium by the scorer.
type Criticality string

const (
	CriticalityLow    Criticality = "low"
	CriticalityMedium Criticality = "medium"
	CriticalityHigh   Criticality = "high"
)

// Host is a scanned machine, identified by its IP address.
// Hosts are created on first sighting and never deleted by the pipeline;
// staleness is surfaced through LastSeen.
type Host struct {
	ID          uint         `json:"id"`
	IP          string       `json:"ip"`
	LastSeen    time.Time    `json:"last_seen"`
	Criticality *Criticality `json:"asset_criticality,omitempty"`
	IsPublic    *bool        `json:"is_public,omitempty"`
	MaxRisk     *float64     `json:"max_risk,omitempty"`
}

// Service is a network service discovered on a host. Identity is the
// (host, port, protocol) triple; re-sighting refreshes everything except
// FirstSeen.
type Service struct {
	ID        uint      `json:"id"`
	HostID    uint      `json:"host_id"`
	Port      int       `json:"port"`
	Protocol  string    `json:"protocol"`
	Product   string    `json:"product,omitempty"`
	Version   string    `json:"version,omitempty"`
	Banner    *string   `json:"banner,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	MaxRisk   *float64  `json:"max_risk,omitempty"`
}
