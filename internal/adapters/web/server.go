package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server exposes the persisted inventory read-only for reporting clients.
// It never mutates the model; maintenance actions live outside the core.
type Server struct {
	Addr      string
	Inventory ports.Inventory
	Findings  ports.FindingStore

	srv *http.Server
}

// NewServer creates a new reporting server.
func NewServer(addr string, inventory ports.Inventory, findings ports.FindingStore) *Server {
	return &Server{
		Addr:      addr,
		Inventory: inventory,
		Findings:  findings,
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := SetupRoutes(s)

	// Instrument with OpenTelemetry
	instrumentedHandler := otelhttp.NewHandler(handler, "netrisk-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown implementation
	go func() {
		<-ctx.Done()
		log.Println("Reporting server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Reporting server shutdown error: %v", err)
		}
	}()

	log.Printf("Reporting server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
