package domain

import (
	"regexp"
	"strings"
)

// CVEEntry is one known vulnerability from the precomputed
// product:version lookup table.
type CVEEntry struct {
	ID          string   `json:"cve_id"`
	CVSS        *float64 `json:"cvss"`
	Description string   `json:"description"`
}

var versionCoreRe = regexp.MustCompile(`^(\d+(?:\.\d+)+)`)

// VersionCore reduces a raw version string to its leading dotted-numeric
// core, e.g. "2.2.34-1ubuntu1 (Unix)" -> "2.2.34". A version with no such
// prefix is returned lower-cased and trimmed, unchanged otherwise.
func VersionCore(version string) string {
	v := strings.ToLower(strings.TrimSpace(version))
	if m := versionCoreRe.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// VulnKey builds the normalized "<product>:<version-core>" lookup key.
// It returns "" when product or version is absent, or when no numeric
// version core can be extracted; callers must not attempt a match then.
func VulnKey(product, version string) string {
	p := strings.ToLower(strings.TrimSpace(product))
	if p == "" || strings.TrimSpace(version) == "" {
		return ""
	}
	v := VersionCore(version)
	if !versionCoreRe.MatchString(v) {
		return ""
	}
	return p + ":" + v
}
