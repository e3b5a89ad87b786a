package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/action"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/app/storage"
	"github.com/MoeMoeen/productroadmap-sheet-sub000/internal/logger"
)

// Service exposes the Action API over HTTP, grounded on the teacher's
// internal/app/httpapi.Service lifecycle shape, stripped of the teacher's
// audit/tenant/admin-role/metrics-instrumentation machinery (not in scope
// for this platform's single shared-secret Action API; metrics are
// instrumented separately via internal/app/metrics).
type Service struct {
	addr    string
	server  *http.Server
	handler http.Handler
	log     *logger.Logger
}

// NewService wires the Action API handler behind the shared-secret auth
// middleware and CORS, ready to Start.
func NewService(addr string, store storage.ActionRunStore, registry *action.Registry, secret string, bearer BearerValidator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("http")
	}
	handler := NewHandler(store, registry, log)
	// Order matters: CORS short-circuits preflight OPTIONS before auth
	// sees the request.
	handler = wrapWithAuth(handler, secret, bearer)
	handler = wrapWithCORS(handler)

	return &Service{addr: addr, handler: handler, log: log}
}

func (s *Service) Name() string { return "http" }

func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server error")
		}
	}()
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// wrapWithCORS allows the Apps Script / sheet-side client to call the
// Action API from a browser context and short-circuits preflight requests.
func wrapWithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+sharedSecretHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
