package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/resource"
	"github.com/coreplane/activityd/internal/domain/scheduler"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/providers/connectivity"
	"github.com/coreplane/activityd/internal/providers/power"
)

func newTestRouter(t *testing.T) (*gin.Engine, *scheduler.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loop := eventloop.New()
	reqs := requirement.NewManager()
	triggers := trigger.NewDispatcher()
	assoc := resource.NewAssociations()
	log := logging.NewNop()

	conn := connectivity.New(loop, connectivity.NewFuncSource(), triggers, log, nil)
	pow := power.New(loop, triggers, log, nil)
	loop.Do(func() {
		conn.RegisterRequirements(reqs)
		pow.RegisterRequirements(reqs)
		reqs.EnableAll()
	})

	manager := scheduler.NewManager(loop, reqs, triggers, assoc, log, nil, scheduler.Config{
		BackgroundConcurrency:            2,
		BackgroundInteractiveConcurrency: 3,
		YieldTimeout:                     time.Minute,
	})
	manager.Enable(scheduler.UIEnable)

	handlers := NewHandlers(manager, conn, pow, nil, log)

	router := gin.New()
	router.POST("/activity/create", handlers.Create)
	router.POST("/activity/release", handlers.Release)
	router.POST("/activity/start", handlers.Start)
	router.POST("/activity/stop", handlers.Stop)
	router.POST("/activity/cancel", handlers.Cancel)
	router.POST("/activity/pause", handlers.Pause)
	router.POST("/activity/complete", handlers.Complete)
	router.POST("/activity/focus", handlers.Focus)
	router.POST("/activity/unfocus", handlers.Unfocus)
	router.POST("/activity/addFocus", handlers.AddFocus)
	router.POST("/activity/getDetails", handlers.GetDetails)
	router.GET("/activity/list", handlers.List)
	router.POST("/admin/concurrency", handlers.SetConcurrency)
	router.POST("/admin/providers/connectivity/update", handlers.ConnectivityUpdate)

	return router, manager
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func createBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":    name,
		"creator": map[string]interface{}{"type": "named", "id": "com.example.test"},
	}
}

func activityID(t *testing.T, resp map[string]interface{}) uint64 {
	t.Helper()
	payload, ok := resp["payload"].(map[string]interface{})
	require.True(t, ok, "response has a payload: %v", resp)
	id, ok := payload["activityId"].(float64)
	require.True(t, ok)
	return uint64(id)
}

func TestCreateAndStart(t *testing.T) {
	router, manager := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/activity/create", createBody("job"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["ok"])
	id := activityID(t, resp)

	w, _ = do(t, router, http.MethodPost, "/activity/start", map[string]interface{}{"activityId": id})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []uint64{id}, manager.QueueContents(scheduler.QueueBackground))
}

func TestCreateValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/activity/create", map[string]interface{}{
		"creator": map[string]interface{}{"type": "named", "id": "com.example.test"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, "InvalidArg", resp["errorCode"])
}

func TestDuplicateCreateConflicts(t *testing.T) {
	router, _ := newTestRouter(t)

	do(t, router, http.MethodPost, "/activity/create", createBody("dup"))
	w, resp := do(t, router, http.MethodPost, "/activity/create", createBody("dup"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadyRegistered", resp["errorCode"])
}

func TestCommandByName(t *testing.T) {
	router, manager := newTestRouter(t)

	_, resp := do(t, router, http.MethodPost, "/activity/create", createBody("named-job"))
	id := activityID(t, resp)

	w, _ := do(t, router, http.MethodPost, "/activity/start", map[string]interface{}{
		"name":    "named-job",
		"creator": map[string]interface{}{"type": "named", "id": "com.example.test"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uint64{id}, manager.QueueContents(scheduler.QueueBackground))
}

func TestUnknownActivityIs404(t *testing.T) {
	router, _ := newTestRouter(t)

	w, resp := do(t, router, http.MethodPost, "/activity/start", map[string]interface{}{"activityId": 777})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", resp["errorCode"])
}

func TestCancelIdempotentOverHTTP(t *testing.T) {
	router, _ := newTestRouter(t)

	_, resp := do(t, router, http.MethodPost, "/activity/create", createBody("c"))
	id := activityID(t, resp)
	ref := map[string]interface{}{"activityId": id}

	w, _ := do(t, router, http.MethodPost, "/activity/cancel", ref)
	require.Equal(t, http.StatusOK, w.Code)
	w, resp = do(t, router, http.MethodPost, "/activity/cancel", ref)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["ok"])
}

func TestGetDetails(t *testing.T) {
	router, _ := newTestRouter(t)

	body := createBody("detailed")
	body["requirements"] = map[string]interface{}{"internet": true}
	_, resp := do(t, router, http.MethodPost, "/activity/create", body)
	id := activityID(t, resp)

	w, resp := do(t, router, http.MethodPost, "/activity/getDetails", map[string]interface{}{"activityId": id})
	require.Equal(t, http.StatusOK, w.Code)

	payload := resp["payload"].(map[string]interface{})
	assert.Equal(t, "detailed", payload["name"])
	assert.Equal(t, "initialized", payload["state"])
	reqs := payload["requirements"].(map[string]interface{})
	internet := reqs["internet"].(map[string]interface{})
	assert.Equal(t, false, internet["met"])
}

// S3 over the wire: create with an internet requirement, start, observe
// scheduled, inject a connectivity update, observe running.
func TestRequirementSatisfactionEndToEnd(t *testing.T) {
	router, manager := newTestRouter(t)

	body := createBody("wants-internet")
	body["requirements"] = map[string]interface{}{"internet": true}
	_, resp := do(t, router, http.MethodPost, "/activity/create", body)
	id := activityID(t, resp)

	do(t, router, http.MethodPost, "/activity/start", map[string]interface{}{"activityId": id})
	require.Equal(t, []uint64{id}, manager.QueueContents(scheduler.QueueScheduled))

	w, _ := do(t, router, http.MethodPost, "/admin/providers/connectivity/update", map[string]interface{}{
		"isInternetConnectionAvailable": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []uint64{id}, manager.QueueContents(scheduler.QueueBackground))
}

func TestListQueues(t *testing.T) {
	router, _ := newTestRouter(t)

	_, resp := do(t, router, http.MethodPost, "/activity/create", createBody("listed"))
	id := activityID(t, resp)
	do(t, router, http.MethodPost, "/activity/start", map[string]interface{}{"activityId": id})

	w, resp := do(t, router, http.MethodGet, "/activity/list", nil)
	require.Equal(t, http.StatusOK, w.Code)

	payload := resp["payload"].(map[string]interface{})
	queues := payload["queues"].([]interface{})
	require.Len(t, queues, 1)
	queue := queues[0].(map[string]interface{})
	assert.Equal(t, "background", queue["name"])
}

func TestFocusCommands(t *testing.T) {
	router, _ := newTestRouter(t)

	_, respA := do(t, router, http.MethodPost, "/activity/create", createBody("fa"))
	a := activityID(t, respA)
	_, respB := do(t, router, http.MethodPost, "/activity/create", createBody("fb"))
	b := activityID(t, respB)

	w, _ := do(t, router, http.MethodPost, "/activity/focus", map[string]interface{}{"activityId": a})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, router, http.MethodPost, "/activity/addFocus", map[string]interface{}{
		"sourceId": a, "targetId": b,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Unfocusing an unfocused activity is a validation error.
	do(t, router, http.MethodPost, "/activity/unfocus", map[string]interface{}{"activityId": a})
	w, resp := do(t, router, http.MethodPost, "/activity/unfocus", map[string]interface{}{"activityId": a})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidArg", resp["errorCode"])
}

func TestAdminConcurrency(t *testing.T) {
	router, manager := newTestRouter(t)

	for _, name := range []string{"x", "y", "z"} {
		_, resp := do(t, router, http.MethodPost, "/activity/create", createBody(name))
		do(t, router, http.MethodPost, "/activity/start", map[string]interface{}{"activityId": activityID(t, resp)})
	}
	require.Len(t, manager.QueueContents(scheduler.QueueBackground), 2)

	level := 3
	w, resp := do(t, router, http.MethodPost, "/admin/concurrency", map[string]interface{}{"background": level})
	require.Equal(t, http.StatusOK, w.Code)
	payload := resp["payload"].(map[string]interface{})
	assert.Equal(t, 2.0, payload["previousBackground"])

	assert.Len(t, manager.QueueContents(scheduler.QueueBackground), 3)
}
