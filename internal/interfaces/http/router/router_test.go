package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRoutes struct{ path string }

func (p pingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET(p.path, func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rg.POST(p.path, func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})
	rg.GET("/panic", func(*gin.Context) { panic("boom") })
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).
		Probe(pingRoutes{path: "/healthz"}).
		Register(pingRoutes{path: "/ping"}).
		Setup()

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/api/v1/ping", http.StatusOK},
		{"/ping", http.StatusNotFound},
		{"/api/v1/healthz", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestNewEngine(t *testing.T) {
	engine := NewEngine(EngineConfig{
		ServiceName:  "fashun-test",
		Meter:        noop.NewMeterProvider().Meter("test"),
		MaxBodyBytes: 16,
		Logger:       zaptest.NewLogger(t),
	})
	NewRouter(engine).Register(pingRoutes{path: "/ping"}).Setup()

	t.Run("sets a request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps a caller request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("rejects oversized bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ping", strings.NewReader(strings.Repeat("x", 64)))
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_REQUEST_TOO_LARGE")
	})

	t.Run("recovers panics", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	engine := gin.New()
	srv := NewServer("127.0.0.1:0", engine, time.Second, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
