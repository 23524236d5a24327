package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gridnote/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	a := s.app
	a.mu.RLock()
	cells := a.doc.Store.Len()
	cycles := len(a.cycles)
	name := a.doc.Name
	graphReady := a.graph != nil
	a.mu.RUnlock()

	if !graphReady {
		status.Status = "degraded"
		status.Components["graph"] = "missing"
	} else {
		status.Components["document"] = fmt.Sprintf("ok (%s, %d cells, %d cycles)", name, cells, cycles)
	}

	// History
	switch {
	case a.history != nil:
		status.Components["history"] = fmt.Sprintf("ok (%d queued)", a.saveQueue.Len())
	case a.Config.DB.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	if err := ctx.Err(); err != nil {
		status.Status = "degraded"
		status.Components["context"] = err.Error()
	}

	status.Components["heap_mb"] = fmt.Sprintf("%d", util.GetHeapAllocMB())
	return status
}

// ServeHTTP renders Check as JSON; degraded status answers 503.
func (s *HealthService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := s.Check(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
