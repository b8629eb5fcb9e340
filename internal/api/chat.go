package api

import (
	"net/http"

	"nutribot/internal/auth"

	"github.com/gin-gonic/gin"
)

// ChatRequest is one message to the chatbot.
type ChatRequest struct {
	Query string `json:"query" binding:"required"`
}

// Chat routes the query to an agent and returns the full result.
func (s *Server) Chat(c *gin.Context) {
	var req ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	user, _ := auth.CurrentUser(c)

	result, err := s.chat.HandleQuery(c.Request.Context(), user.ID, req.Query)
	if err != nil {
		s.logger.Error("Chat request failed", "user_id", user.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Chatbot error: "+err.Error())
		return
	}
	if !result.Success {
		result.Response = gin.H{}
	}
	c.JSON(http.StatusOK, result)
}

// SimpleChat returns only the reply text.
func (s *Server) SimpleChat(c *gin.Context) {
	var req ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	user, _ := auth.CurrentUser(c)

	result, err := s.chat.HandleQuery(c.Request.Context(), user.ID, req.Query)
	if err != nil {
		s.logger.Error("Simple chat request failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusOK, gin.H{"response": "Sorry, I'm having trouble processing your request. Please try again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": result.Text()})
}

// ListAgents describes the agents the chatbot routes to.
func (s *Server) ListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, s.chat.Agents())
}

// ChatHealth reports that the chatbot is up.
func (s *Server) ChatHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          "chatbot",
		"agents_available": len(s.chat.Agents()),
	})
}
