package config

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	DBPath       string
	CVEDBPath    string
	CVECachePath string
	EPSSCache    string
	EPSSEndpoint string
	EPSSPause    time.Duration
	Addr         string

	// Stage selection
	IngestGlob  string
	Match       bool
	MergeEPSS   bool
	RefreshEPSS bool
	Score       bool
	Recompute   bool
	DryRun      bool
	Limit       int
	Aggregate   bool
	Pipeline    bool
	Serve       bool
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load() *Config {
	cfg := &Config{}

	// Defaults and Environment Variables
	cfg.DBPath = getEnv("NETRISK_DB", getDefaultDBPath())
	cfg.CVEDBPath = getEnv("NETRISK_CVE_DB", "")
	cfg.CVECachePath = getEnv("NETRISK_CVE_CACHE", "enrich/cve_cache.json")
	cfg.EPSSCache = getEnv("NETRISK_EPSS_CACHE", "")
	cfg.EPSSEndpoint = getEnv("NETRISK_EPSS_URL", "")
	cfg.EPSSPause = time.Duration(getEnvInt("NETRISK_EPSS_PAUSE_MS", 500)) * time.Millisecond
	cfg.Addr = getEnv("NETRISK_ADDR", ":8080")

	// Command Line Flags (Override Env)
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite inventory database")
	flag.StringVar(&cfg.CVEDBPath, "cve-db", cfg.CVEDBPath, "Path to seeded CVE lookup database (empty: use -cve-cache JSON directly)")
	flag.StringVar(&cfg.CVECachePath, "cve-cache", cfg.CVECachePath, "Path to CVE lookup cache JSON")
	flag.StringVar(&cfg.EPSSCache, "epss-cache", cfg.EPSSCache, "Local EPSS cache JSON (empty: fetch from the remote API)")
	flag.StringVar(&cfg.EPSSEndpoint, "epss-url", cfg.EPSSEndpoint, "EPSS API endpoint (empty: public default)")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Reporting API listen address")

	flag.StringVar(&cfg.IngestGlob, "ingest", "", "Glob of scanner XML files to ingest")
	flag.BoolVar(&cfg.Match, "match", false, "Match services against the CVE lookup table")
	flag.BoolVar(&cfg.MergeEPSS, "epss", false, "Merge exploit-likelihood scores into findings")
	flag.BoolVar(&cfg.RefreshEPSS, "refresh-epss", false, "Overwrite likelihood scores that are already set")
	flag.BoolVar(&cfg.Score, "score", false, "Compute risk scores for findings")
	flag.BoolVar(&cfg.Recompute, "recompute", false, "Re-score findings that already have a risk score")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Compute scores without writing them")
	flag.IntVar(&cfg.Limit, "limit", 0, "Score at most N findings (0: no limit)")
	flag.BoolVar(&cfg.Aggregate, "aggregate", false, "Roll max risk up to services and hosts")
	flag.BoolVar(&cfg.Pipeline, "pipeline", false, "Run ingest, match, EPSS merge, score and aggregate in order")
	flag.BoolVar(&cfg.Serve, "serve", false, "Serve the read-only reporting API")

	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getDefaultDBPath returns the default database path in user's home directory.
// Creates the directory if it doesn't exist.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "netrisk.db"
	}

	dir := filepath.Join(home, ".netrisk")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .netrisk directory, using current dir: %v", err)
		return "netrisk.db"
	}

	return filepath.Join(dir, "netrisk.db")
}
