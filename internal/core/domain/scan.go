package domain

// ScanRecord is one open service as reported by a scanner document, after
// normalization. It carries no storage identity; the inventory store resolves
// IPs to hosts during upsert.
type ScanRecord struct {
	IP       string  `json:"ip"`
	Port     int     `json:"port"`
	Protocol string  `json:"protocol"`
	Product  string  `json:"product,omitempty"`
	Version  string  `json:"version,omitempty"`
	Banner   *string `json:"banner,omitempty"`
}
