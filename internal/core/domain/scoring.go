package domain

// ScoringRow is one finding joined with the asset context the risk formula
// needs. Nil pointers mean the value was never recorded; the scorer applies
// its configured defaults instead of failing.
type ScoringRow struct {
	FindingID      uint         `json:"finding_id"`
	ServiceID      uint         `json:"service_id"`
	HostID         uint         `json:"host_id"`
	CVEID          string       `json:"cve_id"`
	CVSS           *float64     `json:"cvss"`
	Exploitability string       `json:"exploitability"`
	EPSS           *float64     `json:"epss"`
	Criticality    *Criticality `json:"asset_criticality"`
	IsPublic       *bool        `json:"is_public"`
}
