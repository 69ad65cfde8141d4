package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDevMode(t *testing.T) {
	old := zap.L()
	defer zap.ReplaceGlobals(old)

	log, err := New(true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel), "expected debug enabled in dev mode")
	assert.Same(t, log, zap.L())
}

func TestNewProdMode(t *testing.T) {
	old := zap.L()
	defer zap.ReplaceGlobals(old)

	log, err := New(false)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel), "expected debug disabled in prod mode")
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func serveLogged(t *testing.T, path string, status int) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	RequestLogger(zap.New(core))(inner).ServeHTTP(rec, req)
	return logs
}

func TestRequestLogger(t *testing.T) {
	logs := serveLogged(t, "/api/properties", http.StatusOK)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/properties", fields["path"])
	assert.EqualValues(t, 200, fields["status"])
}

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			logs := serveLogged(t, "/api/applications/x", tt.status)
			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.want, logs.All()[0].Level)
		})
	}
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	logs := serveLogged(t, "/health", http.StatusOK)
	assert.Equal(t, 0, logs.Len(), "expected no log for /health path")
}

func TestRequestLoggerImplicitStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})

	req := httptest.NewRequest("GET", "/api/me", nil)
	RequestLogger(zap.New(core))(inner).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 200, fields["status"])
	assert.EqualValues(t, 5, fields["bytes"])
}
