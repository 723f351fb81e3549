// Package http implements the bus command surface over HTTP. Every
// command returns the standard result envelope {ok, errorCode, errorText}.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coreplane/activityd/internal/domain/scheduler"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
	"github.com/coreplane/activityd/internal/providers/connectivity"
	"github.com/coreplane/activityd/internal/providers/power"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Handlers carries the collaborators the command surface needs.
type Handlers struct {
	manager      *scheduler.Manager
	connectivity *connectivity.Provider
	power        *power.Provider
	metrics      *monitoring.Metrics
	log          *logging.Logger
}

// NewHandlers creates the command handlers.
func NewHandlers(manager *scheduler.Manager, conn *connectivity.Provider, pow *power.Provider, metrics *monitoring.Metrics, log *logging.Logger) *Handlers {
	return &Handlers{
		manager:      manager,
		connectivity: conn,
		power:        pow,
		metrics:      metrics,
		log:          log.Named("api"),
	}
}

// activityRef addresses an activity by id or by (name, creator).
type activityRef struct {
	ActivityID uint64       `json:"activityId"`
	Name       string       `json:"name"`
	Creator    *types.BusID `json:"creator"`
}

// resolve maps a reference to an activity id.
func (h *Handlers) resolve(ref activityRef) (uint64, error) {
	if ref.ActivityID != 0 {
		return ref.ActivityID, nil
	}
	if ref.Name == "" {
		return 0, types.InvalidArg("an activityId or a name is required")
	}
	creator := types.AnonBusID("")
	if ref.Creator != nil {
		creator = *ref.Creator
	}
	return h.manager.ResolveName(ref.Name, creator)
}

func statusFor(err error) int {
	switch types.CodeOf(err) {
	case types.CodeOK:
		return http.StatusOK
	case types.CodeInvalidArg:
		return http.StatusBadRequest
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeAlreadyRegistered:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respond(c *gin.Context, payload interface{}, err error) {
	if err != nil {
		c.JSON(statusFor(err), types.ErrResult(err))
		return
	}
	c.JSON(http.StatusOK, types.OKResult(payload))
}

func bindJSON(c *gin.Context, out interface{}) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return types.InvalidArg("invalid request: %v", err)
	}
	return nil
}
