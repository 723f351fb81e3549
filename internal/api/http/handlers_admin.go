package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coreplane/activityd/internal/domain/scheduler"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "activityd"})
}

// MetricsSnapshot returns the headline metric values as JSON.
func (h *Handlers) MetricsSnapshot(c *gin.Context) {
	respond(c, h.metrics.GetSnapshot(), nil)
}

// PrometheusHandler exposes the Prometheus scrape endpoint.
func PrometheusHandler() gin.HandlerFunc {
	handler := promhttp.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// SetConcurrency changes the admission concurrency levels at runtime. A
// level of 0 means unlimited; omitted levels are left alone.
func (h *Handlers) SetConcurrency(c *gin.Context) {
	var req struct {
		Background            *int `json:"background"`
		BackgroundInteractive *int `json:"backgroundInteractive"`
	}
	if err := bindJSON(c, &req); err != nil {
		respond(c, nil, err)
		return
	}

	result := gin.H{}
	if req.Background != nil {
		old, err := h.manager.SetBackgroundConcurrencyLevel(*req.Background)
		if err != nil {
			respond(c, nil, err)
			return
		}
		result["previousBackground"] = old
	}
	if req.BackgroundInteractive != nil {
		old, err := h.manager.SetBackgroundInteractiveConcurrencyLevel(*req.BackgroundInteractive)
		if err != nil {
			respond(c, nil, err)
			return
		}
		result["previousBackgroundInteractive"] = old
	}
	respond(c, result, nil)
}

// SetYieldTimeout changes the yield timer interval.
func (h *Handlers) SetYieldTimeout(c *gin.Context) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := bindJSON(c, &req); err != nil {
		respond(c, nil, err)
		return
	}
	respond(c, nil, h.manager.SetYieldTimeout(time.Duration(req.Seconds)*time.Second))
}

// Enable sets bits of the scheduler enable mask.
func (h *Handlers) Enable(c *gin.Context) {
	h.enableMask(c, h.manager.Enable)
}

// Disable clears bits of the scheduler enable mask.
func (h *Handlers) Disable(c *gin.Context) {
	h.enableMask(c, h.manager.Disable)
}

func (h *Handlers) enableMask(c *gin.Context, fn func(uint)) {
	var req struct {
		Bits []string `json:"bits"`
	}
	if err := bindJSON(c, &req); err != nil {
		respond(c, nil, err)
		return
	}

	var mask uint
	for _, bit := range req.Bits {
		switch bit {
		case "external":
			mask |= scheduler.ExternalEnable
		case "ui":
			mask |= scheduler.UIEnable
		default:
			respond(c, nil, types.InvalidArg("unknown enable bit %q", bit))
			return
		}
	}

	fn(mask)
	respond(c, nil, nil)
}

// Evict moves a running background activity to the long-background queue.
func (h *Handlers) Evict(c *gin.Context) {
	h.refCommand(c, h.manager.EvictBackgroundActivity)
}

// EvictAll moves every running background activity to the long-background
// queue.
func (h *Handlers) EvictAll(c *gin.Context) {
	h.manager.EvictAllBackgroundActivities()
	respond(c, nil, nil)
}

// RunReady admits a specific ready activity, or everything ready when no
// reference is given.
func (h *Handlers) RunReady(c *gin.Context) {
	var ref activityRef
	if err := bindJSON(c, &ref); err != nil {
		respond(c, nil, err)
		return
	}

	if ref.ActivityID == 0 && ref.Name == "" {
		h.manager.RunAllReadyActivities()
		respond(c, nil, nil)
		return
	}

	id, err := h.resolve(ref)
	if err != nil {
		respond(c, nil, err)
		return
	}
	respond(c, nil, h.manager.RunReadyActivity(id))
}

// ConnectivityUpdate injects a connection status payload, for deployments
// that push status instead of polling and for operational testing.
func (h *Handlers) ConnectivityUpdate(c *gin.Context) {
	var payload map[string]interface{}
	if err := bindJSON(c, &payload); err != nil {
		respond(c, nil, err)
		return
	}
	h.connectivity.Update(payload)
	respond(c, nil, nil)
}

// PowerUpdate injects a charger status payload.
func (h *Handlers) PowerUpdate(c *gin.Context) {
	var payload map[string]interface{}
	if err := bindJSON(c, &payload); err != nil {
		respond(c, nil, err)
		return
	}
	h.power.Update(payload)
	respond(c, nil, nil)
}
