// Package admin serves operator endpoints for the API key pool behind basic auth.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"nutribot/internal/chatbot"
	"nutribot/internal/credential"

	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds a manual health check.
const healthCheckTimeout = time.Minute

type Handler struct {
	pool   *credential.Pool
	prober credential.Prober
	memory *chatbot.Memory
	logger *slog.Logger
}

// NewHandler creates the admin handler. prober and memory may be nil, which disables the
// endpoints that need them.
func NewHandler(pool *credential.Pool, prober credential.Prober, memory *chatbot.Memory, logger *slog.Logger) *Handler {
	return &Handler{pool: pool, prober: prober, memory: memory, logger: logger.With("component", "admin")}
}

func (h *Handler) ListKeysHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.pool.Status())
}

func (h *Handler) ResetKeysHandler(c *gin.Context) {
	h.pool.Reset()
	h.logger.Info("API keys reset by admin")
	c.JSON(http.StatusOK, gin.H{"message": "Keys reset successfully"})
}

// HealthCheckHandler probes every key now instead of waiting for the scheduled check.
func (h *Handler) HealthCheckHandler(c *gin.Context) {
	if h.prober == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Health checks are not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()
	h.pool.CheckHealth(ctx, h.prober)
	c.JSON(http.StatusOK, h.pool.Status())
}

// ClearMemoryHandler forgets stored conversations idle for longer than max_idle, or all of
// them when max_idle is not given.
func (h *Handler) ClearMemoryHandler(c *gin.Context) {
	if h.memory == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Conversation memory is not configured"})
		return
	}
	var removed int
	if v := c.Query("max_idle"); v != "" {
		maxIdle, err := time.ParseDuration(v)
		if err != nil || maxIdle < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_idle duration"})
			return
		}
		removed = h.memory.Prune(maxIdle)
	} else {
		removed = h.memory.ClearAll()
	}
	h.logger.Info("Conversation memory pruned by admin", "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed, "remaining": h.memory.Len()})
}
