package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/protoforge/internal/observability"
)

func TestHealthHandler_ReturnsOK(t *testing.T) {
	t.Parallel()

	handler := observability.HealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string

	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])

	// Healthy responses carry no reason.
	_, hasReason := body["reason"]
	assert.False(t, hasReason)
}

func TestHealthHandler_ContentTypeJSON(t *testing.T) {
	t.Parallel()

	handler := observability.HealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadyHandler_AllChecksPass(t *testing.T) {
	t.Parallel()

	protoDirCheck := func(_ context.Context) error { return nil }
	watcherCheck := func(_ context.Context) error { return nil }
	handler := observability.ReadyHandler(protoDirCheck, watcherCheck)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string

	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyHandler_NoChecks(t *testing.T) {
	t.Parallel()

	handler := observability.ReadyHandler()

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

var (
	errTestWatcherDown  = errors.New("watcher not running")
	errTestProtoDirGone = errors.New("proto dir removed")
)

func TestReadyHandler_FailingCheckNamesReason(t *testing.T) {
	t.Parallel()

	failCheck := func(_ context.Context) error { return errTestWatcherDown }
	passCheck := func(_ context.Context) error { return nil }

	handler := observability.ReadyHandler(passCheck, failCheck)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string

	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, "watcher not running", body["reason"])
}

func TestReadyHandler_FirstFailureWins(t *testing.T) {
	t.Parallel()

	var secondRan bool

	firstFail := func(_ context.Context) error { return errTestProtoDirGone }
	secondFail := func(_ context.Context) error {
		secondRan = true

		return errTestWatcherDown
	}

	handler := observability.ReadyHandler(firstFail, secondFail)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string

	err := json.Unmarshal(rec.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "proto dir removed", body["reason"])

	// Checks after the first failure are skipped.
	assert.False(t, secondRan)
}

func TestReadyHandler_ChecksGetRequestContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	var gotValue any

	check := func(ctx context.Context) error {
		gotValue = ctx.Value(ctxKey{})

		return nil
	}

	handler := observability.ReadyHandler(check)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "present"))

	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "present", gotValue)
}
