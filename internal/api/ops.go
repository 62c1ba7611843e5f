package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/MyTurnyet/switch-this-sub002/internal/buildinfo"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings the store with a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warnw("readiness check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleDebugInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build":   buildinfo.Info(),
		"time":    time.Now().UTC().Format(time.RFC3339),
		"started": s.started.Format(time.RFC3339),
		"config": map[string]any{
			"port":           s.cfg.Server.Port,
			"databaseType":   s.cfg.Database.Type,
			"hasDatabaseUrl": s.cfg.Database.URL != "",
			"hasRedisUrl":    s.cfg.Redis.URL != "",
			"rateRps":        s.cfg.API.RateRPS,
			"rateBurst":      s.cfg.API.RateBurst,
			"allowOrigins":   s.cfg.API.AllowOrigins,
			"logLevel":       s.cfg.Logging.Level,
		},
	})
}

//go:embed openapi.yaml
var openAPIYAML []byte

var openAPIJSON = sync.OnceValues(func() ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
})

// handleOpenAPI serves the embedded OpenAPI document as JSON.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	b, err := openAPIJSON()
	if err != nil {
		s.log.Errorw("openapi document", "err", err)
		writeError(w, http.StatusInternalServerError, "OpenAPI not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
