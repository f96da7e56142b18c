package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
)

// Weights are the risk formula's term weights. They are an explicit design
// constant and must sum to 1.0.
type Weights struct {
	CVSS       float64
	Asset      float64
	Exposure   float64
	Maturity   float64
	Likelihood float64
}

// DefaultWeights is the production weight set.
var DefaultWeights = Weights{
	CVSS:       0.45,
	Asset:      0.25,
	Exposure:   0.10,
	Maturity:   0.10,
	Likelihood: 0.10,
}

// Config carries the scorer's tunables. Defaults that the original logic
// buried in branches (the medium-criticality fallback in particular) are
// explicit here so tests can override them.
type Config struct {
	Weights            Weights
	DefaultCriticality domain.Criticality
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights:            DefaultWeights,
		DefaultCriticality: domain.CriticalityMedium,
	}
}

var criticalityScores = map[domain.Criticality]float64{
	domain.CriticalityLow:    20,
	domain.CriticalityMedium: 50,
	domain.CriticalityHigh:   100,
}

// Calculator computes weighted risk scores. It is pure; persistence is the
// caller's concern.
type Calculator struct {
	cfg Config
}

// NewCalculator validates the configuration and returns a calculator.
func NewCalculator(cfg Config) (*Calculator, error) {
	sum := cfg.Weights.CVSS + cfg.Weights.Asset + cfg.Weights.Exposure +
		cfg.Weights.Maturity + cfg.Weights.Likelihood
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, fmt.Errorf("score weights must sum to 1.0, got %v", sum)
	}
	if _, ok := criticalityScores[cfg.DefaultCriticality]; !ok {
		return nil, fmt.Errorf("unknown default criticality %q", cfg.DefaultCriticality)
	}
	return &Calculator{cfg: cfg}, nil
}

// Score combines severity, asset criticality, exposure, exploit maturity
// and exploit likelihood into a single 0-100 risk value, rounded to two
// decimal places. Missing or malformed inputs are defaulted, never errors.
func (c *Calculator) Score(row domain.ScoringRow) float64 {
	risk := c.cfg.Weights.CVSS*normalizeCVSS(row.CVSS) +
		c.cfg.Weights.Asset*c.criticalityScore(row.Criticality) +
		c.cfg.Weights.Exposure*exposureScore(row.IsPublic) +
		c.cfg.Weights.Maturity*maturityScore(row.Exploitability) +
		c.cfg.Weights.Likelihood*likelihoodScore(row.EPSS)

	return math.Round(risk*100) / 100
}

// normalizeCVSS clamps to [0,10] and scales onto [0,100]. Missing is 0.
func normalizeCVSS(cvss *float64) float64 {
	if cvss == nil || math.IsNaN(*cvss) {
		return 0
	}
	v := math.Max(0, math.Min(10, *cvss))
	return v * 10
}

// criticalityScore maps low/medium/high onto 20/50/100. Missing or
// unrecognized values fall back to the configured default, a conservative
// assumption rather than an error.
func (c *Calculator) criticalityScore(crit *domain.Criticality) float64 {
	if crit != nil {
		if score, ok := criticalityScores[domain.Criticality(strings.ToLower(string(*crit)))]; ok {
			return score
		}
	}
	return criticalityScores[c.cfg.DefaultCriticality]
}

// exposureScore is 100 for public-facing assets, otherwise 0.
func exposureScore(isPublic *bool) float64 {
	if isPublic != nil && *isPublic {
		return 100
	}
	return 0
}

// maturityScore normalizes free-text exploit maturity from common feeds
// into the none/poc/public buckets.
func maturityScore(maturity string) float64 {
	switch strings.ToLower(strings.TrimSpace(maturity)) {
	case "public", "weaponized", "exploited":
		return 100
	case "poc", "proof_of_concept", "proof-of-concept":
		return 50
	default:
		return 0
	}
}

// likelihoodScore scales the 0-1 exploit probability onto 0-100.
func likelihoodScore(epss *float64) float64 {
	if epss == nil || math.IsNaN(*epss) {
		return 0
	}
	return *epss * 100
}
