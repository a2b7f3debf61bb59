// Package handler implements the worker's HTTP endpoints.
package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/fashun/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable
type Check func(ctx context.Context) error

// HealthHandler serves liveness, readiness and build information
type HealthHandler struct {
	name      string
	version   string
	startTime time.Time
	timeout   time.Duration
	checks    map[string]Check
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(name, version string) *HealthHandler {
	return &HealthHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		timeout:   2 * time.Second,
		checks:    make(map[string]Check),
	}
}

// WithCheck adds a dependency consulted by the readiness probe
func (h *HealthHandler) WithCheck(name string, check Check) *HealthHandler {
	h.checks[name] = check
	return h
}

// WithTimeout bounds each readiness check
func (h *HealthHandler) WithTimeout(d time.Duration) *HealthHandler {
	h.timeout = d
	return h
}

// RegisterRoutes registers the probes on rg
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/healthz", h.Live)
	rg.GET("/readyz", h.Ready)
	rg.GET("/system/info", h.Info)
}

// Live answers as long as the process serves requests
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

// ReadinessResponse lists the state of each dependency
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready runs every check and answers 503 if any fails
func (h *HealthHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()

		if err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, dto.Response{
			Success: false,
			Data:    resp,
			Error:   &dto.ErrorInfo{Code: dto.ErrCodeUnavailable, Message: "one or more dependencies are unavailable"},
		})
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Info returns name, version and uptime
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}
