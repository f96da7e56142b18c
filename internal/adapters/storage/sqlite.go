package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SchemaVersion identifies the inventory schema this adapter migrates.
// The full schema (including the asset-criticality and exposure columns)
// is created up front, so callers never probe for optional columns.
const SchemaVersion = 1

// SQLiteAdapter implements ports.Inventory and ports.FindingStore using
// GORM and SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

// HostModel is the GORM model for hosts.
type HostModel struct {
	ID          uint   `gorm:"primaryKey"`
	IP          string `gorm:"uniqueIndex"`
	LastSeen    time.Time
	Criticality *string // low, medium, high
	IsPublic    *bool
	MaxRisk     *float64

	Services []ServiceModel `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE"`
}

// ServiceModel is the GORM model for discovered services. Identity is the
// (host_id, port, protocol) triple.
type ServiceModel struct {
	ID        uint   `gorm:"primaryKey"`
	HostID    uint   `gorm:"uniqueIndex:idx_service_identity"`
	Port      int    `gorm:"uniqueIndex:idx_service_identity"`
	Protocol  string `gorm:"uniqueIndex:idx_service_identity"`
	Product   string
	Version   string
	Banner    *string
	FirstSeen time.Time
	LastSeen  time.Time
	MaxRisk   *float64

	Findings []FindingModel `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE"`
}

// FindingModel is the GORM model for (service, CVE) findings.
type FindingModel struct {
	ID             uint     `gorm:"primaryKey"`
	ServiceID      uint     `gorm:"uniqueIndex:idx_finding_identity"`
	CVEID          string   `gorm:"uniqueIndex:idx_finding_identity;column:cve_id"`
	CVSS           *float64 `gorm:"column:cvss"`
	Description    string
	Exploitability string
	EPSS           *float64 `gorm:"column:epss"`
	EPSSPercentile *float64 `gorm:"column:epss_percentile"`
	RiskScore      *float64
}

// NewSQLiteAdapter opens the database, installs tracing and migrates the
// schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&HostModel{}, &ServiceModel{}, &FindingModel{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	// SQLite needs this per connection for the host -> service -> finding
	// cascade to hold under out-of-band truncation.
	db.Exec("PRAGMA foreign_keys = ON")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_hosts_last_seen ON host_models(last_seen)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_findings_cve ON finding_models(cve_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_findings_risk ON finding_models(risk_score)")

	return &SQLiteAdapter{db: db}, nil
}

// UpsertHosts inserts or refreshes one row per IP and returns the resulting
// IP -> id mapping. Conflicts resolve on the unique IP index, so concurrent
// ingesters never create duplicate identities, and last_seen only ever moves
// forward.
func (a *SQLiteAdapter) UpsertHosts(ctx context.Context, ips []string) (map[string]uint, error) {
	if len(ips) == 0 {
		return map[string]uint{}, nil
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(ips))
	models := make([]HostModel, 0, len(ips))
	for _, ip := range ips {
		if ip == "" || seen[ip] {
			continue
		}
		seen[ip] = true
		models = append(models, HostModel{IP: ip, LastSeen: now})
	}

	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ip"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_seen": gorm.Expr("MAX(last_seen, excluded.last_seen)"),
		}),
	}).Create(&models).Error
	if err != nil {
		return nil, fmt.Errorf("upsert hosts: %w", err)
	}

	var rows []HostModel
	if err := a.db.WithContext(ctx).Where("ip IN ?", keys(seen)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("resolve host ids: %w", err)
	}

	ids := make(map[string]uint, len(rows))
	for _, r := range rows {
		ids[r.IP] = r.ID
	}
	return ids, nil
}

// UpsertServices deduplicates the batch on (host, port, protocol), later
// records winning, then writes with a conflict clause that refreshes
// product/version/banner/last_seen while preserving first_seen. Records whose
// IP has no resolved host id are skipped, not fatal.
func (a *SQLiteAdapter) UpsertServices(ctx context.Context, records []domain.ScanRecord, hostIDs map[string]uint) (ports.UpsertSummary, error) {
	summary := ports.UpsertSummary{Hosts: len(hostIDs)}
	if len(records) == 0 {
		return summary, nil
	}

	now := time.Now().UTC()

	type identity struct {
		host  uint
		port  int
		proto string
	}
	deduped := make(map[identity]ServiceModel, len(records))
	order := make([]identity, 0, len(records))
	for _, r := range records {
		hostID, ok := hostIDs[r.IP]
		if !ok {
			summary.Skipped++
			continue
		}
		key := identity{hostID, r.Port, r.Protocol}
		if _, exists := deduped[key]; !exists {
			order = append(order, key)
		}
		deduped[key] = ServiceModel{
			HostID:    hostID,
			Port:      r.Port,
			Protocol:  r.Protocol,
			Product:   r.Product,
			Version:   r.Version,
			Banner:    r.Banner,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	models := make([]ServiceModel, 0, len(order))
	for _, key := range order {
		models = append(models, deduped[key])
	}
	if len(models) == 0 {
		return summary, nil
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "host_id"}, {Name: "port"}, {Name: "protocol"}},
			DoUpdates: clause.AssignmentColumns([]string{"product", "version", "banner", "last_seen"}),
		}).CreateInBatches(models, 100).Error
	})
	if err != nil {
		return summary, fmt.Errorf("upsert services: %w", err)
	}

	summary.Services = len(models)
	return summary, nil
}

// ListHosts retrieves all known hosts.
func (a *SQLiteAdapter) ListHosts(ctx context.Context) ([]domain.Host, error) {
	var models []HostModel
	if err := a.db.WithContext(ctx).Order("ip").Find(&models).Error; err != nil {
		return nil, err
	}
	hosts := make([]domain.Host, len(models))
	for i, m := range models {
		hosts[i] = hostToDomain(m)
	}
	return hosts, nil
}

// ListServices retrieves all known services.
func (a *SQLiteAdapter) ListServices(ctx context.Context) ([]domain.Service, error) {
	var models []ServiceModel
	if err := a.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	services := make([]domain.Service, len(models))
	for i, m := range models {
		services[i] = serviceToDomain(m)
	}
	return services, nil
}

// ServicesByHost retrieves the services owned by one host.
func (a *SQLiteAdapter) ServicesByHost(ctx context.Context, hostID uint) ([]domain.Service, error) {
	var models []ServiceModel
	if err := a.db.WithContext(ctx).Where("host_id = ?", hostID).Order("port").Find(&models).Error; err != nil {
		return nil, err
	}
	services := make([]domain.Service, len(models))
	for i, m := range models {
		services[i] = serviceToDomain(m)
	}
	return services, nil
}

// InsertFindings inserts findings with DO NOTHING semantics on the
// (service, CVE) identity, so repeated enrichment runs never duplicate rows.
func (a *SQLiteAdapter) InsertFindings(ctx context.Context, findings []domain.Finding) (int, error) {
	if len(findings) == 0 {
		return 0, nil
	}

	models := make([]FindingModel, 0, len(findings))
	for _, f := range findings {
		if f.CVEID == "" {
			continue
		}
		models = append(models, FindingModel{
			ServiceID:      f.ServiceID,
			CVEID:          f.CVEID,
			CVSS:           f.CVSS,
			Description:    f.Description,
			Exploitability: f.Exploitability,
		})
	}
	if len(models) == 0 {
		return 0, nil
	}

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "service_id"}, {Name: "cve_id"}},
			DoNothing: true,
		}).CreateInBatches(models, 100).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert findings: %w", err)
	}
	return len(models), nil
}

// CVEsNeedingLikelihood returns the distinct CVE ids referenced by findings,
// restricted to rows without a likelihood unless refresh is set.
func (a *SQLiteAdapter) CVEsNeedingLikelihood(ctx context.Context, refresh bool) ([]string, error) {
	q := a.db.WithContext(ctx).Model(&FindingModel{}).
		Distinct("cve_id").
		Where("cve_id <> ''")
	if !refresh {
		q = q.Where("epss IS NULL")
	}

	var cves []string
	if err := q.Order("cve_id").Pluck("cve_id", &cves).Error; err != nil {
		return nil, fmt.Errorf("collect cves: %w", err)
	}
	return cves, nil
}

// UpdateLikelihood fans each EPSS record out to every finding referencing
// that CVE. With refresh=false only rows whose likelihood is still NULL are
// filled, which makes interrupted merges safely resumable.
func (a *SQLiteAdapter) UpdateLikelihood(ctx context.Context, records []domain.EPSSRecord, refresh bool) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var affected int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range records {
			q := tx.Model(&FindingModel{}).Where("cve_id = ?", r.CVE)
			if !refresh {
				q = q.Where("epss IS NULL")
			}
			res := q.Updates(map[string]interface{}{
				"epss":            r.Score,
				"epss_percentile": r.Percentile,
			})
			if res.Error != nil {
				return res.Error
			}
			affected += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update likelihood: %w", err)
	}
	return affected, nil
}

// scoringRowModel is the scan target for the findings/services/hosts join.
type scoringRowModel struct {
	FindingID      uint     `gorm:"column:finding_id"`
	ServiceID      uint     `gorm:"column:service_id"`
	HostID         uint     `gorm:"column:host_id"`
	CVEID          string   `gorm:"column:cve_id"`
	CVSS           *float64 `gorm:"column:cvss"`
	Exploitability string   `gorm:"column:exploitability"`
	EPSS           *float64 `gorm:"column:epss"`
	Criticality    *string  `gorm:"column:criticality"`
	IsPublic       *bool    `gorm:"column:is_public"`
}

// ScoringRows loads findings joined with their service and host context,
// ordered by finding id for deterministic incremental runs.
func (a *SQLiteAdapter) ScoringRows(ctx context.Context, onlyUnscored bool) ([]domain.ScoringRow, error) {
	q := a.db.WithContext(ctx).Table("finding_models AS f").
		Select(`f.id AS finding_id, f.service_id, s.host_id, f.cve_id,
			f.cvss, f.exploitability, f.epss,
			h.criticality, h.is_public`).
		Joins("JOIN service_models s ON s.id = f.service_id").
		Joins("JOIN host_models h ON h.id = s.host_id")
	if onlyUnscored {
		q = q.Where("f.risk_score IS NULL")
	}

	var models []scoringRowModel
	if err := q.Order("f.id").Scan(&models).Error; err != nil {
		return nil, fmt.Errorf("load scoring rows: %w", err)
	}

	rows := make([]domain.ScoringRow, len(models))
	for i, m := range models {
		row := domain.ScoringRow{
			FindingID:      m.FindingID,
			ServiceID:      m.ServiceID,
			HostID:         m.HostID,
			CVEID:          m.CVEID,
			CVSS:           m.CVSS,
			Exploitability: m.Exploitability,
			EPSS:           m.EPSS,
			IsPublic:       m.IsPublic,
		}
		if m.Criticality != nil {
			c := domain.Criticality(*m.Criticality)
			row.Criticality = &c
		}
		rows[i] = row
	}
	return rows, nil
}

// UpdateRiskScores writes computed risk scores back, keyed by finding id.
func (a *SQLiteAdapter) UpdateRiskScores(ctx context.Context, scores map[uint]float64) (int64, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	var affected int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, score := range scores {
			res := tx.Model(&FindingModel{}).Where("id = ?", id).
				Update("risk_score", score)
			if res.Error != nil {
				return res.Error
			}
			affected += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update risk scores: %w", err)
	}
	return affected, nil
}

// AggregateMaxRisk rolls the maximum finding score up to services and then
// hosts. The rollups are purely derived: entities with no scored findings
// get NULL, distinguishing "no data" from "zero risk".
func (a *SQLiteAdapter) AggregateMaxRisk(ctx context.Context) error {
	db := a.db.WithContext(ctx)

	if err := db.Exec(`
		UPDATE service_models SET max_risk = (
			SELECT MAX(risk_score) FROM finding_models
			WHERE finding_models.service_id = service_models.id
			  AND risk_score IS NOT NULL
		)`).Error; err != nil {
		return fmt.Errorf("aggregate service risk: %w", err)
	}

	if err := db.Exec(`
		UPDATE host_models SET max_risk = (
			SELECT MAX(max_risk) FROM service_models
			WHERE service_models.host_id = host_models.id
		)`).Error; err != nil {
		return fmt.Errorf("aggregate host risk: %w", err)
	}

	return nil
}

// FindingsByService retrieves the findings attached to one service.
func (a *SQLiteAdapter) FindingsByService(ctx context.Context, serviceID uint) ([]domain.Finding, error) {
	var models []FindingModel
	if err := a.db.WithContext(ctx).Where("service_id = ?", serviceID).Order("cve_id").Find(&models).Error; err != nil {
		return nil, err
	}
	findings := make([]domain.Finding, len(models))
	for i, m := range models {
		findings[i] = findingToDomain(m)
	}
	return findings, nil
}

func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// Ensure interface compliance
var (
	_ ports.Inventory    = (*SQLiteAdapter)(nil)
	_ ports.FindingStore = (*SQLiteAdapter)(nil)
)
