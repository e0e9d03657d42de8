package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	name      string
	env       string
	startedAt time.Time
	checks    map[string]Check
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(name, env string, startedAt time.Time, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		name:      name,
		env:       env,
		startedAt: startedAt,
		checks:    checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	allOK := true
	deps := make(gin.H, len(names))
	for _, name := range names {
		status := dependencyStatus{OK: true}
		if err := h.checks[name](ctx); err != nil {
			status = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
		}
		deps[name] = status
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":          h.name,
		"env":          h.env,
		"uptime_sec":   int(time.Since(h.startedAt).Seconds()),
		"dependencies": deps,
	})
}
