package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/mwengren/glider-dac-status/internal/config"
	"github.com/mwengren/glider-dac-status/internal/connectors/cache"
	"github.com/mwengren/glider-dac-status/internal/connectors/dacdb"
	"github.com/mwengren/glider-dac-status/internal/connectors/endpoints"
	"github.com/mwengren/glider-dac-status/internal/connectors/history"
	"github.com/mwengren/glider-dac-status/internal/connectors/statusapi"
	"github.com/mwengren/glider-dac-status/internal/poller"
)

// Server wraps an HTTP server, the dataset poller and route handlers.
type Server struct {
	httpServer    *nethttp.Server
	poll          *poller.Poller
	pollCancel    context.CancelFunc
	dbStore       *dacdb.Store
	histStore     *history.Store
	snapCache     *cache.SnapshotCache
	prober        *endpoints.Prober
	probeInterval time.Duration
	probeCancel   context.CancelFunc
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config) (*Server, error) {
	var dbStore *dacdb.Store
	if cfg.DBEnabled {
		createdStore, err := dacdb.NewStore(cfg)
		if err != nil {
			return nil, err
		}
		dbStore = createdStore
	}
	var histStore *history.Store
	if cfg.HistorySQLitePath != "" {
		createdStore, err := history.NewSQLiteStore(cfg.HistorySQLitePath, cfg.HistoryKeepCycles)
		if err != nil {
			return nil, err
		}
		histStore = createdStore
	}
	var snapCache *cache.SnapshotCache
	if cfg.RedisEnabled {
		snapCache = cache.NewSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisSnapshotTTL)
	}
	apiClient := statusapi.NewClient(cfg.StatusAPIEndpoint, cfg.StatusAPITimeout)
	prober := endpoints.NewProber(cfg.ERDDAPTargets, cfg.THREDDSTargets, cfg.ProbeTimeout)

	// The DAC database, when configured, is the authoritative source.
	// Otherwise datasets come from the status API.
	var source poller.Source = apiClient
	if dbStore != nil {
		source = dbStore
	}
	p := poller.New(source, cfg.FetchInterval, histStore, snapCache)
	if snapCache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if snap, err := snapCache.Load(ctx); err == nil && snap != nil {
			p.Prime(snap)
		}
		cancel()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardHandler(cfg))
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler(p))
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(p))
	mux.HandleFunc("/api/v1/datasets", datasetsHandler(cfg, p))
	mux.HandleFunc("/api/v1/datasets/", datasetDetailHandler(p))
	mux.HandleFunc("/api/v1/index", indexHandler(p))
	mux.HandleFunc("/api/v1/summary", summaryHandler(p))
	mux.HandleFunc("/api/v1/history", historyHandler(cfg.DefaultViewLimit, histStore))
	mux.HandleFunc("/api/v1/export/datasets.csv", exportCSVHandler(cfg, p))
	mux.HandleFunc("/api/v1/refresh", refreshHandler(p))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(p, apiClient, dbStore, histStore, snapCache, prober))
	mux.HandleFunc("/api/v1/endpoints/probes", endpointProbesHandler(prober))
	mux.HandleFunc("/api/v1/settings/classification", classificationSettingsHandler(cfg))

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s := &Server{
		httpServer:    httpServer,
		poll:          p,
		dbStore:       dbStore,
		histStore:     histStore,
		snapCache:     snapCache,
		prober:        prober,
		probeInterval: cfg.ProbeInterval,
	}
	return s, nil
}

// ListenAndServe starts the dataset poller and the HTTP server.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.pollCancel = cancel
	go s.poll.Run(ctx)
	if s.prober != nil && s.prober.Enabled() {
		probeCtx, probeCancel := context.WithCancel(context.Background())
		s.probeCancel = probeCancel
		go s.startEndpointProber(probeCtx)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the poller and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.pollCancel != nil {
		s.pollCancel()
	}
	if s.probeCancel != nil {
		s.probeCancel()
	}
	if s.dbStore != nil {
		_ = s.dbStore.Close()
	}
	if s.histStore != nil {
		_ = s.histStore.Close()
	}
	if s.snapCache != nil {
		_ = s.snapCache.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) startEndpointProber(ctx context.Context) {
	interval := s.probeInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = s.prober.ProbeTargets(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.prober.ProbeTargets(ctx)
		}
	}
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// readyHandler reports ready once the first snapshot has been published.
func readyHandler(p *poller.Poller) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if p == nil || p.Current() == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status": "waiting for first dataset snapshot",
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
		})
	}
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		fmt.Printf("%s %s %s %s\n", r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
