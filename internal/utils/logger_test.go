package utils

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(logger Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), LoggerMiddleware(logger), ContextLogger(logger))
	r.GET("/ping", func(c *gin.Context) {
		GetLoggerFromContext(c, nil).Info("handled")
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})
	return r
}

func TestRequestID_Generated(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, id, w.Body.String())
	assert.Contains(t, buf.String(), "request_id="+id)
	assert.Contains(t, buf.String(), "msg=handled")
}

func TestRequestID_Propagated(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "status_code=200")
}

func TestLogRequest_LevelByStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.LogRequest(http.MethodGet, "/x", http.StatusNotFound, "1ms")
	assert.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	logger.LogRequest(http.MethodGet, "/x", http.StatusBadGateway, "1ms")
	assert.Contains(t, buf.String(), "level=ERROR")
}

func TestToSlogLogger(t *testing.T) {
	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, base, ToSlogLogger(NewSlogLogger(base)))
}

func TestGetLoggerFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	fallback := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/bare", func(c *gin.Context) {
		GetLoggerFromContext(c, fallback).Info("no middleware")
		c.Status(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bare", nil))

	assert.Contains(t, buf.String(), "msg=\"no middleware\"")
	assert.NotContains(t, buf.String(), "request_id")
}
