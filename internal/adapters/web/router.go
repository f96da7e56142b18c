package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes wires the read-only reporting API.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/hosts", s.handleListHosts).Methods(http.MethodGet)
	api.HandleFunc("/hosts/{id:[0-9]+}/services", s.handleHostServices).Methods(http.MethodGet)
	api.HandleFunc("/services", s.handleListServices).Methods(http.MethodGet)
	api.HandleFunc("/services/{id:[0-9]+}/findings", s.handleServiceFindings).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
