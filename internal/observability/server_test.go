package observability_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wx_decoder/internal/observability"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) CheckReadiness(_ context.Context) error { return s.err }

func opsGet(t *testing.T, srv *observability.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := observability.NewServer(":0", &stubChecker{}, slog.Default())

	rec := opsGet(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["uptime"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := observability.NewServer(":0", &stubChecker{}, slog.Default())

		rec := opsGet(t, srv, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("not ready", func(t *testing.T) {
		srv := observability.NewServer(":0", &stubChecker{err: errors.New("no bulletins processed yet")}, slog.Default())

		rec := opsGet(t, srv, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not ready", body["status"])
		assert.Equal(t, "no bulletins processed yet", body["error"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := observability.NewServer(":0", &stubChecker{}, slog.Default())

	rec := opsGet(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
