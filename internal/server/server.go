package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhye/pistorm/internal/attack"
	"github.com/jhye/pistorm/internal/capture"
	"github.com/jhye/pistorm/internal/config"
	"github.com/jhye/pistorm/internal/model"
	"github.com/jhye/pistorm/internal/wireless"
)

// shutdownGrace is how long in-flight requests get on shutdown.
const shutdownGrace = 5 * time.Second

// AttackController starts and stops attacks. Implemented by
// attack.Worker; abstracted so handler tests don't spawn real attack
// goroutines.
type AttackController interface {
	Start(target string) error
	Stop()
	Tracker() *attack.Tracker
}

// ScanRecorder persists survey snapshots. nil disables persistence.
type ScanRecorder interface {
	SaveScan(ctx context.Context, networks []model.Network) error
}

// Server is the orchestrator HTTP API.
type Server struct {
	cfg       *config.Config
	mgr       *wireless.Manager
	store     *capture.Store
	ctrl      AttackController
	offloader attack.Offloader
	recorder  ScanRecorder
	logger    *slog.Logger
	scans     *scanCache
	limiter   *rateLimiter

	// Interface state discovered at startup, updated by /test_monitor.
	mu              sync.Mutex
	scanIface       string
	monIface        string
	available       []string
	monitorTested   bool
	lastMonitorTest time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithOffloader sets the GPU offloader used by the upload and transfer
// endpoints.
func WithOffloader(o attack.Offloader) Option {
	return func(s *Server) {
		s.offloader = o
	}
}

// WithScanRecorder sets the survey snapshot recorder.
func WithScanRecorder(r ScanRecorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithInterfaces records the detected wireless interfaces.
func WithInterfaces(scanIface, monIface string, available []string) Option {
	return func(s *Server) {
		s.scanIface = scanIface
		s.monIface = monIface
		s.available = available
	}
}

// New creates a Server.
func New(cfg *config.Config, mgr *wireless.Manager, store *capture.Store, ctrl AttackController, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		mgr:       mgr,
		store:     store,
		ctrl:      ctrl,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		scans:     newScanCache(config.DefaultScanCacheTTL),
		limiter:   newRateLimiter(cfg.RateLimit),
		scanIface: cfg.ScanInterface,
		monIface:  cfg.MonitorInterface,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// JSON API, authenticated.
	mux.Handle("GET /scan", s.requireAPIKey(s.handleScan))
	mux.Handle("POST /start", s.requireAPIKey(s.handleStart))
	mux.Handle("GET /status", s.requireAPIKey(s.handleStatus))
	mux.Handle("GET /simple", s.requireAPIKey(s.handleSimple))
	mux.Handle("GET /results", s.requireAPIKey(s.handleResults))
	mux.Handle("POST /cancel", s.requireAPIKey(s.handleCancel))
	mux.Handle("GET /files", s.requireAPIKey(s.handleFiles))
	mux.Handle("GET /wordlists", s.requireAPIKey(s.handleWordlists))
	mux.Handle("GET /config", s.requireAPIKey(s.handleConfig))
	mux.Handle("POST /crack_result", s.requireAPIKey(s.handleCrackResult))
	mux.Handle("POST /upload_cap", s.requireAPIKey(s.handleUploadCap))
	mux.Handle("POST /transfer_to_gpu", s.requireAPIKey(s.handleTransferToGPU))
	mux.Handle("POST /test_monitor", s.requireAPIKey(s.handleTestMonitor))
	mux.Handle("GET /analyze_latest", s.requireAPIKey(s.handleAnalyzeLatest))

	// Health is open so load balancers and the display can probe it.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Plain-text display protocol. /text checks the key itself (no
	// rate limit, the display polls every second); the rest is open,
	// matching the display firmware which cannot set headers.
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /text", s.handleText)
	mux.HandleFunc("GET /status_simple", s.handleStatusSimple)
	mux.HandleFunc("GET /networks", s.handleNetworks)
	mux.HandleFunc("GET /networks/count", s.handleNetworkCount)
	mux.HandleFunc("GET /networks/page/{page}", s.handleNetworkPage)
	mux.HandleFunc("POST /attack_target/{number}", s.handleAttackTarget)
	mux.HandleFunc("POST /attack_start", s.handleAttackStart)
	mux.HandleFunc("POST /attack_stop", s.handleAttackStop)
	mux.HandleFunc("GET /results_simple", s.handleResultsSimple)
	mux.HandleFunc("GET /cmd/{command}", s.handleCommand)
	mux.HandleFunc("POST /cmd/{command}", s.handleCommand)

	return s.recoverMiddleware(s.logMiddleware(mux))
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("api listening", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// freshScan runs a survey on the scan interface, refreshes the cache,
// and records the snapshot.
func (s *Server) freshScan(ctx context.Context) ([]model.Network, error) {
	s.mu.Lock()
	iface := s.scanIface
	s.mu.Unlock()

	if err := s.mgr.SetManagedMode(ctx, iface); err != nil {
		return nil, err
	}
	networks, err := s.mgr.Scan(ctx, iface)
	if err != nil {
		return nil, err
	}

	s.scans.put(networks, time.Now())
	if s.recorder != nil {
		if err := s.recorder.SaveScan(ctx, networks); err != nil {
			s.logger.Warn("failed to record scan snapshot", "error", err)
		}
	}
	return networks, nil
}

// cachedScan returns a fresh-enough cached survey, rescanning when the
// cache has gone stale.
func (s *Server) cachedScan(ctx context.Context) ([]model.Network, error) {
	if networks, ok := s.scans.fresh(time.Now()); ok {
		return networks, nil
	}
	networks, err := s.freshScan(ctx)
	if err != nil {
		return nil, err
	}
	if len(networks) > maxCachedNetworks {
		networks = networks[:maxCachedNetworks]
	}
	return networks, nil
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the {"error": ...} body every JSON endpoint
// uses for failures.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeText writes a plain-text response for the display protocol.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
