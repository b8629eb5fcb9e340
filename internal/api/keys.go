package api

import (
	"net/http"

	"nutribot/internal/llm"

	"github.com/gin-gonic/gin"
)

// KeysStatus reports the credential pool without exposing any key.
func (s *Server) KeysStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"api_keys_status": s.pool.Status(),
		"message":         "API keys status retrieved successfully",
	})
}

// ResetKeys re-enables every key and clears its counters.
func (s *Server) ResetKeys(c *gin.Context) {
	s.pool.Reset()
	s.logger.Info("API keys reset by user request")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All API keys have been reset successfully",
	})
}

// TestKeys sends a short prompt through the fallback client.
func (s *Server) TestKeys(c *gin.Context) {
	text, err := s.client.Generate(c.Request.Context(), llm.Request{
		Prompt:      "Reply with the single word: ok",
		Temperature: llm.Temperature(0),
		MaxTokens:   8,
	})
	status := s.pool.Status()
	if err != nil {
		s.logger.Warn("API key test failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"success":         false,
			"error":           err.Error(),
			"api_keys_status": status,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"response":        text,
		"api_keys_status": status,
	})
}

// SystemHealth is healthy while any key is active and degraded otherwise.
func (s *Server) SystemHealth(c *gin.Context) {
	status := s.pool.Status()
	health, message := "healthy", "System is running normally with active API keys"
	if status.ActiveKeys == 0 {
		health, message = "degraded", "No active API keys available - service may be limited"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"health_status": health,
		"message":       message,
		"api_keys":      status,
		"timestamp":     s.now().UTC(),
	})
}
