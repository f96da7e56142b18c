package ingest

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
)

// Wire structs for the scanner XML document. encoding/xml decodes a single
// child element and a repeated one into the same slice, so the normalizer
// logic below never has to branch on element-vs-list shape.
type scanDocument struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []scanHost `xml:"host"`
}

type scanHost struct {
	Addresses []scanAddress `xml:"address"`
	Ports     scanPorts     `xml:"ports"`
}

type scanAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"` // ipv4, ipv6, mac
}

type scanPorts struct {
	Ports []scanPort `xml:"port"`
}

type scanPort struct {
	Protocol string       `xml:"protocol,attr"`
	PortID   string       `xml:"portid,attr"`
	State    *scanState   `xml:"state"`
	Service  *scanService `xml:"service"`
}

type scanState struct {
	State string `xml:"state,attr"`
}

type scanService struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
}

// Normalize converts one scanner XML document into the flat list of open
// services it reports. It is pure: same document, same output. Individual
// malformed records are dropped; only a wholly unreadable document is an
// error.
func Normalize(data []byte) ([]domain.ScanRecord, error) {
	var doc scanDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unreadable scan document: %w", err)
	}

	var records []domain.ScanRecord
	for _, host := range doc.Hosts {
		ip := pickIP(host.Addresses)
		if ip == "" {
			continue // host without a resolvable address
		}

		for _, port := range host.Ports.Ports {
			// Absent state information fails closed.
			if port.State == nil || port.State.State != "open" {
				continue
			}

			portNum, err := strconv.Atoi(port.PortID)
			if err != nil || portNum <= 0 {
				continue
			}
			proto := strings.TrimSpace(port.Protocol)
			if proto == "" {
				continue
			}

			rec := domain.ScanRecord{
				IP:       ip,
				Port:     portNum,
				Protocol: proto,
			}
			if svc := port.Service; svc != nil {
				rec.Product = svc.Product
				rec.Version = svc.Version
				rec.Banner = serviceBanner(svc)
			}
			records = append(records, rec)
		}
	}

	return records, nil
}

// pickIP prefers an IPv4-classified address and falls back to the first
// address listed. Empty means the host has no resolvable address.
func pickIP(addrs []scanAddress) string {
	for _, a := range addrs {
		switch strings.ToLower(a.AddrType) {
		case "ipv4", "ip":
			if a.Addr != "" {
				return a.Addr
			}
		}
	}
	if len(addrs) > 0 {
		return addrs[0].Addr
	}
	return ""
}

// serviceBanner joins name, product, version and a parenthesized extra-info
// field, skipping absent parts. All absent means no banner, not an empty one.
func serviceBanner(svc *scanService) *string {
	var parts []string
	if svc.Name != "" {
		parts = append(parts, svc.Name)
	}
	if svc.Product != "" {
		parts = append(parts, svc.Product)
	}
	if svc.Version != "" {
		parts = append(parts, svc.Version)
	}
	if svc.ExtraInfo != "" {
		parts = append(parts, "("+svc.ExtraInfo+")")
	}
	if len(parts) == 0 {
		return nil
	}
	banner := strings.Join(parts, " ")
	return &banner
}
