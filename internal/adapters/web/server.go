package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

// SessionSource reports the running session.
type SessionSource interface {
	Info() domain.SessionInfo
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr    string
	Index   *DeviceIndex
	WS      *WSManager
	Session SessionSource

	logger *zap.Logger
	srv    *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, index *DeviceIndex, ws *WSManager, session SessionSource, logger *zap.Logger) *Server {
	return &Server{
		Addr:    addr,
		Index:   index,
		WS:      ws,
		Session: session,
		logger:  logging.OrNop(logger).Named("web"),
	}
}

// SetupRoutes builds the router.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	// On the root router so a method mismatch answers 405 rather than 404.
	r.HandleFunc("/api/devices", s.handleDevices).Methods(http.MethodGet)
	r.HandleFunc("/api/devices/{bssid}", s.handleDevice).Methods(http.MethodGet)
	r.HandleFunc("/api/session", s.handleSession).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.WS.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Handler returns the routes instrumented with OpenTelemetry.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "wpsscan-api")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.WS.Close()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Web server shutdown error", zap.Error(err))
		}
	}()

	s.logger.Info("Web server listening", zap.String("addr", s.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleDevices lists devices, optionally filtered by ?security= and ?p2p=.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var p2p *bool
	if v := q.Get("p2p"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid p2p filter")
			return
		}
		p2p = &b
	}
	security := domain.SecurityLabel(q.Get("security"))

	devices := make([]domain.Device, 0, s.Index.Len())
	for _, d := range s.Index.List() {
		if security != "" && d.Security != security {
			continue
		}
		if p2p != nil && d.IsP2P() != *p2p {
			continue
		}
		devices = append(devices, d)
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bssid, err := domain.ParseMAC(vars["bssid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid BSSID")
		return
	}

	device, ok := s.Index.Get(bssid)
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.Session == nil {
		writeError(w, http.StatusServiceUnavailable, "no session")
		return
	}
	writeJSON(w, http.StatusOK, s.Session.Info())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
