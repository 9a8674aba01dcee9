package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextlevelbuilder/socialpilot/internal/monitor"
)

type fakeRunner struct {
	calls int
	rep   *monitor.Report
	err   error
}

func (f *fakeRunner) RunOnce(context.Context) (*monitor.Report, error) {
	f.calls++
	return f.rep, f.err
}

func serveOps(h *OpsHandler, token string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	req := httptest.NewRequest("POST", "/v1/monitor/run", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMonitorRunRequiresToken(t *testing.T) {
	runner := &fakeRunner{rep: &monitor.Report{}}

	rec := serveOps(NewOpsHandler(runner, "s3cret"), "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serveOps(NewOpsHandler(runner, "s3cret"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestMonitorRunNotMountedWithoutToken(t *testing.T) {
	rec := serveOps(NewOpsHandler(&fakeRunner{}, ""), "anything")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonitorRunReport(t *testing.T) {
	runner := &fakeRunner{rep: &monitor.Report{
		Strategies: []monitor.StrategyReport{{Name: "Spring listings"}},
		Err:        errors.New("strategy x: rewrite failed"),
	}}
	rec := serveOps(NewOpsHandler(runner, "s3cret"), "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Report struct {
			Strategies []struct {
				Name string `json:"name"`
			} `json:"strategies"`
		} `json:"report"`
		Errors string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Report.Strategies, 1)
	assert.Equal(t, "Spring listings", got.Report.Strategies[0].Name)
	assert.Contains(t, got.Errors, "rewrite failed")
}

func TestMonitorRunScanFailure(t *testing.T) {
	runner := &fakeRunner{rep: &monitor.Report{}, err: errors.New("scan strategies: db down")}
	rec := serveOps(NewOpsHandler(runner, "s3cret"), "s3cret")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
