package domain

// EPSSRecord is an exploit-likelihood estimate for one CVE: a 0-1
// probability and a 0-100 percentile rank.
type EPSSRecord struct {
	CVE        string  `json:"cve"`
	Score      float64 `json:"epss"`
	Percentile float64 `json:"percentile"`
}

// NormalizePercentile maps a percentile that may be encoded on either a
// 0-1 or a 0-100 scale onto 0-100. Anything at or below 1.0 is treated as
// a fraction.
func NormalizePercentile(p float64) float64 {
	if p <= 1.0 {
		return p * 100.0
	}
	return p
}
