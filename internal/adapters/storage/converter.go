package storage

import "github.com/lcalzada-xor/netrisk/internal/core/domain"

// hostToDomain converts a database model to a domain entity.
func hostToDomain(m HostModel) domain.Host {
	h := domain.Host{
		ID:       m.ID,
		IP:       m.IP,
		LastSeen: m.LastSeen,
		IsPublic: m.IsPublic,
		MaxRisk:  m.MaxRisk,
	}
	if m.Criticality != nil {
		c := domain.Criticality(*m.Criticality)
		h.Criticality = &c
	}
	return h
}

func serviceToDomain(m ServiceModel) domain.Service {
	return domain.Service{
		ID:        m.ID,
		HostID:    m.HostID,
		Port:      m.Port,
		Protocol:  m.Protocol,
		Product:   m.Product,
		Version:   m.Version,
		Banner:    m.Banner,
		FirstSeen: m.FirstSeen,
		LastSeen:  m.LastSeen,
		MaxRisk:   m.MaxRisk,
	}
}

func findingToDomain(m FindingModel) domain.Finding {
	return domain.Finding{
		ID:             m.ID,
		ServiceID:      m.ServiceID,
		CVEID:          m.CVEID,
		CVSS:           m.CVSS,
		Description:    m.Description,
		Exploitability: m.Exploitability,
		EPSS:           m.EPSS,
		EPSSPercentile: m.EPSSPercentile,
		RiskScore:      m.RiskScore,
	}
}
