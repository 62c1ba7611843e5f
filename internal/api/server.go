package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MyTurnyet/switch-this-sub002/internal/config"
	"github.com/MyTurnyet/switch-this-sub002/internal/metrics"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

type Deps struct {
	Store   store.Store
	Service *switchlist.Service
	Broker  EventBroker
	Metrics *metrics.Metrics
	Log     *zap.SugaredLogger
	// Config is reported by /debug/info and drives rate limiting and
	// websocket origin checks.
	Config *config.Config
}

type Server struct {
	store   store.Store
	svc     *switchlist.Service
	broker  EventBroker
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
	cfg     *config.Config
	started time.Time
}

// NewServer wires the HTTP layer. Store and Service are required.
func NewServer(d Deps) *Server {
	s := &Server{
		store:   d.Store,
		svc:     d.Service,
		broker:  d.Broker,
		metrics: d.Metrics,
		log:     d.Log,
		cfg:     d.Config,
		started: time.Now().UTC(),
	}
	if s.broker == nil {
		s.broker = NewBroker()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	return s
}

// Routes builds the router with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logMiddleware, s.metricsMiddleware, s.rateLimitMiddleware())

	r.HandleFunc("/switchlists", s.handleListSwitchlists).Methods(http.MethodGet)
	r.HandleFunc("/switchlists", s.handleCreateSwitchlist).Methods(http.MethodPost)
	r.HandleFunc("/switchlists/{id}", s.handleGetSwitchlist).Methods(http.MethodGet)
	r.HandleFunc("/switchlists/{id}", s.handleUpdateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/switchlists/{id}/operations", s.handleListOperations).Methods(http.MethodGet)
	r.HandleFunc("/switchlists/{id}/operations/{index:[0-9]+}/execute", s.handleExecuteOperation).Methods(http.MethodPost)
	r.HandleFunc("/switchlists/{id}/print", s.handlePrint).Methods(http.MethodGet)
	r.HandleFunc("/switchlists/{id}/events", s.handleEvents).Methods(http.MethodGet)

	r.HandleFunc("/locations", s.handleListLocations).Methods(http.MethodGet)
	r.HandleFunc("/locations/{id}/cars", s.handleCarsAtLocation).Methods(http.MethodGet)
	r.HandleFunc("/industries", s.handleListIndustries).Methods(http.MethodGet)
	r.HandleFunc("/industries/{id}/occupancy", s.handleOccupancy).Methods(http.MethodGet)
	r.HandleFunc("/rolling-stock", s.handleListRollingStock).Methods(http.MethodGet)
	r.HandleFunc("/train-routes", s.handleListTrainRoutes).Methods(http.MethodGet)
	r.HandleFunc("/train-routes/{id}", s.handleGetTrainRoute).Methods(http.MethodGet)
	r.HandleFunc("/train-routes/{id}/plan", s.handlePreviewPlan).Methods(http.MethodGet)
	r.HandleFunc("/layout/check", s.handleLayoutCheck).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/debug/info", s.handleDebugInfo).Methods(http.MethodGet)
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// OpenStore returns the store selected by cfg.Type, running migrations for
// postgres when cfg.Migrate is set.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		p, err := store.NewPostgres(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := p.Migrate(ctx); err != nil {
				_ = p.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return p, nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = ":memory:"
		}
		sq, err := store.NewSQLite(path)
		if err != nil {
			return nil, err
		}
		return sq, nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}

// OpenBroker returns a Redis broker when a URL is configured and reachable,
// otherwise the in-process broker.
func OpenBroker(ctx context.Context, cfg config.RedisConfig, log *zap.SugaredLogger) EventBroker {
	if cfg.URL == "" {
		return NewBroker()
	}
	rb, err := NewRedisBroker(ctx, cfg.URL, cfg.Channel, log)
	if err != nil {
		log.Warnw("redis broker unavailable, using in-process events", "err", err)
		return NewBroker()
	}
	return rb
}
