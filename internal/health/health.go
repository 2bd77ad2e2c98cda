// Package health provides liveness and readiness probes for the
// gateway and checks for its downstream dependencies.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Status of a probe or an individual check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultProbeTimeout bounds how long a readiness probe may take.
const DefaultProbeTimeout = 5 * time.Second

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Check is the result of one dependency probe.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker aggregates dependency checks into liveness and readiness
// probes.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	checks    map[string]CheckFunc
	mu        sync.RWMutex
}

// NewChecker creates a checker reporting the given version.
func NewChecker(version string) *Checker {
	return &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultProbeTimeout,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency check to the readiness probe.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// HealthHandler answers liveness probes. The process serving the
// request is alive by definition, so this never consults dependencies.
func (c *Checker) HealthHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":    StatusHealthy,
			"version":   c.version,
			"uptime":    time.Since(c.startTime).Round(time.Second).String(),
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler answers readiness probes by running all registered
// checks. Any failing check makes the probe answer 503.
func (c *Checker) ReadinessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		probeCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
		defer cancel()

		c.mu.RLock()
		checks := make(map[string]CheckFunc, len(c.checks))
		for name, check := range c.checks {
			checks[name] = check
		}
		c.mu.RUnlock()

		status := StatusHealthy
		results := make(map[string]Check, len(checks))
		for name, check := range checks {
			if err := check(probeCtx); err != nil {
				status = StatusUnhealthy
				results[name] = Check{Status: StatusUnhealthy, Message: err.Error()}

				continue
			}

			results[name] = Check{Status: StatusHealthy}
		}

		code := http.StatusOK
		if status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		ctx.JSON(code, gin.H{
			"status":    status,
			"checks":    results,
			"timestamp": time.Now(),
		})
	}
}
