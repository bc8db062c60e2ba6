package httpapi

import (
	"context"
	"net/http"
	"time"
)

// ReadyChecker is optionally implemented by storage backends to
// indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
	defer cancel()
	for _, store := range s.stores {
		if rc, ok := store.(ReadyChecker); ok {
			if err := rc.Ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}
