package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoport/internal/config"
	"neoport/internal/core/model"
	"neoport/internal/history"
)

// fakeScanner 记录请求并返回预设结果
type fakeScanner struct {
	lastReq *model.ScanRequest
	ctxErr  error
	resp    *model.ScanResponse
	err     error
}

func (f *fakeScanner) Scan(ctx context.Context, req *model.ScanRequest) (*model.ScanResponse, error) {
	f.lastReq = req
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestRouter(t *testing.T, scanner *fakeScanner, mutate func(*config.Config)) (*gin.Engine, history.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Server.Mode = gin.TestMode
	cfg.Middleware.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	store := history.NewMemoryStore()
	r := NewRouter(cfg, Dependencies{Scanner: scanner, History: store, HistoryLimit: 2})
	return r.GetEngine(), store
}

func doJSON(engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sampleResponse() *model.ScanResponse {
	return &model.ScanResponse{
		Target:          "127.0.0.1",
		ScanType:        model.ScanTypeQuick,
		TotalPorts:      1,
		OpenPorts:       1,
		ClosedPorts:     0,
		ScanTimeSeconds: "0.01",
		Results: []model.ProbeResult{
			{Port: 22, Status: model.StatusOpen, Protocol: model.ProtocolTCP, Service: "ssh", Banner: "SSH-2.0-OpenSSH_9.6", Version: "-", Method: model.MethodBanner},
		},
	}
}

func TestHealthRoutes(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeScanner{}, nil)

	for _, path := range []string{"/health", "/ping", "/version"} {
		w := doJSON(engine, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Equal(t, "pong", decode(t, doJSON(engine, http.MethodGet, "/ping", nil))["message"])
}

func TestPortScan_OK(t *testing.T) {
	scanner := &fakeScanner{resp: sampleResponse()}
	engine, _ := newTestRouter(t, scanner, nil)

	w := doJSON(engine, http.MethodPost, "/port/scan", map[string]interface{}{
		"target":    "127.0.0.1",
		"scanType":  "custom",
		"startPort": 20,
		"endPort":   25,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, scanner.lastReq)
	assert.Equal(t, model.ScanTypeCustom, scanner.lastReq.ScanType)
	assert.Equal(t, 20, scanner.lastReq.StartPort)
	assert.Equal(t, 25, scanner.lastReq.EndPort)
	assert.NoError(t, scanner.ctxErr)

	var resp model.ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "0.01", resp.ScanTimeSeconds)
	assert.Len(t, resp.Results, 1)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestPortScan_ValidationError(t *testing.T) {
	scanner := &fakeScanner{err: model.NewValidationError("target", "Target IP/hostname is required")}
	engine, _ := newTestRouter(t, scanner, nil)

	w := doJSON(engine, http.MethodPost, "/port/scan", map[string]interface{}{"scanType": "quick"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Target IP/hostname is required", decode(t, w)["error"])
}

func TestPortScan_InternalError(t *testing.T) {
	scanner := &fakeScanner{err: model.WrapAggregateFailure(errors.New("boom"), "aggregate")}
	engine, _ := newTestRouter(t, scanner, nil)

	w := doJSON(engine, http.MethodPost, "/port/scan", map[string]interface{}{"target": "127.0.0.1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decode(t, w)["error"])
}

func TestPortScan_BadBody(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeScanner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/port/scan", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryRoutes(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeScanner{}, nil)

	var ids []string
	for _, target := range []string{"a.example", "b.example", "c.example"} {
		w := doJSON(engine, http.MethodPost, "/portHistory/save", map[string]interface{}{
			"userId":   "u1",
			"target":   target,
			"scanType": "quick",
			"summary":  map[string]interface{}{"totalPorts": 1, "openPorts": 1, "closedPorts": 0, "scanTimeSeconds": "0.01"},
			"results":  sampleResponse().Results,
		})
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Port history saved!", body["message"])
		ids = append(ids, body["id"].(string))
	}

	// HistoryLimit=2，最新的在前
	w := doJSON(engine, http.MethodGet, "/portHistory/all/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []history.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
	assert.Equal(t, 1, list[0].TotalPorts)

	w = doJSON(engine, http.MethodGet, "/portHistory/all/nobody", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = doJSON(engine, http.MethodDelete, "/portHistory/delete/"+ids[0], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Deleted successfully!", decode(t, w)["message"])

	w = doJSON(engine, http.MethodDelete, "/portHistory/delete/"+ids[0], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistorySave_MissingUser(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeScanner{}, nil)

	w := doJSON(engine, http.MethodPost, "/portHistory/save", map[string]interface{}{"target": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeScanner{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/port/scan", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/port/scan", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	engine, _ := newTestRouter(t, &fakeScanner{}, func(cfg *config.Config) {
		cfg.Middleware.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doJSON(engine, http.MethodGet, "/ping", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
