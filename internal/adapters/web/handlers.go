package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are gone; nothing left to do but note it
		return
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// handleSummary reports inventory-wide counts and the riskiest hosts.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.Inventory.ListHosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	services, err := s.Inventory.ListServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var scoredHosts int
	var maxRisk float64
	for _, h := range hosts {
		if h.MaxRisk != nil {
			scoredHosts++
			if *h.MaxRisk > maxRisk {
				maxRisk = *h.MaxRisk
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hosts":        len(hosts),
		"services":     len(services),
		"scored_hosts": scoredHosts,
		"max_risk":     maxRisk,
	})
}

func (s *Server) handleListHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.Inventory.ListHosts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) handleHostServices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid host id")
		return
	}
	services, err := s.Inventory.ServicesByHost(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.Inventory.ListServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) handleServiceFindings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	findings, err := s.Findings.FindingsByService(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, findings)
}
