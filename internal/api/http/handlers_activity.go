package http

import (
	"github.com/gin-gonic/gin"

	"github.com/coreplane/activityd/internal/domain/activity"
	"github.com/coreplane/activityd/internal/shared/types"
)

// Create accepts an activity definition and registers it in initialized
// state.
func (h *Handlers) Create(c *gin.Context) {
	var def types.ActivityDefinition
	if err := bindJSON(c, &def); err != nil {
		respond(c, nil, err)
		return
	}

	id, err := h.manager.CreateActivity(&def)
	if err != nil {
		respond(c, nil, err)
		return
	}
	respond(c, gin.H{"activityId": id}, nil)
}

// Release drops the caller's handle on an activity.
func (h *Handlers) Release(c *gin.Context) {
	h.refCommand(c, func(id uint64) error {
		return h.manager.Release(id)
	})
}

// Start requests scheduling for an initialized or paused activity.
func (h *Handlers) Start(c *gin.Context) {
	h.command(c, activity.CommandStart)
}

// Stop winds an activity down gracefully.
func (h *Handlers) Stop(c *gin.Context) {
	h.command(c, activity.CommandStop)
}

// Cancel drives an activity straight to ended.
func (h *Handlers) Cancel(c *gin.Context) {
	h.command(c, activity.CommandCancel)
}

// Pause takes an activity off its queue until restarted.
func (h *Handlers) Pause(c *gin.Context) {
	h.command(c, activity.CommandPause)
}

// Complete reports the work done; restart policy may re-arm the activity.
func (h *Handlers) Complete(c *gin.Context) {
	h.command(c, activity.CommandComplete)
}

// Focus gives an activity exclusive focus.
func (h *Handlers) Focus(c *gin.Context) {
	h.refCommand(c, h.manager.Focus)
}

// Unfocus removes an activity's focus.
func (h *Handlers) Unfocus(c *gin.Context) {
	h.refCommand(c, h.manager.Unfocus)
}

// AddFocus adds the target activity to the focused set; the source must
// already be focused.
func (h *Handlers) AddFocus(c *gin.Context) {
	var req struct {
		SourceID uint64 `json:"sourceId"`
		TargetID uint64 `json:"targetId"`
	}
	if err := bindJSON(c, &req); err != nil {
		respond(c, nil, err)
		return
	}
	respond(c, nil, h.manager.AddFocus(req.SourceID, req.TargetID))
}

// GetDetails returns the full introspection view of one activity.
func (h *Handlers) GetDetails(c *gin.Context) {
	var ref activityRef
	if err := bindJSON(c, &ref); err != nil {
		respond(c, nil, err)
		return
	}

	id, err := h.resolve(ref)
	if err != nil {
		respond(c, nil, err)
		return
	}

	details, err := h.manager.Details(id)
	respond(c, details, err)
}

// List returns the run queue snapshot and any leaked activities.
func (h *Handlers) List(c *gin.Context) {
	respond(c, h.manager.Info(), nil)
}

func (h *Handlers) command(c *gin.Context, cmd activity.Command) {
	h.refCommand(c, func(id uint64) error {
		return h.manager.SendCommand(id, cmd)
	})
}

func (h *Handlers) refCommand(c *gin.Context, fn func(id uint64) error) {
	var ref activityRef
	if err := bindJSON(c, &ref); err != nil {
		respond(c, nil, err)
		return
	}

	id, err := h.resolve(ref)
	if err != nil {
		respond(c, nil, err)
		return
	}
	respond(c, gin.H{"activityId": id}, fn(id))
}
