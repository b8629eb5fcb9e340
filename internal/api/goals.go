package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"nutribot/internal/auth"
	"nutribot/internal/db"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
)

// GoalRequest creates a goal or, on update, changes the fields it sets.
type GoalRequest struct {
	GoalType       string     `json:"goal_type"`
	TargetWeight   *float64   `json:"target_weight"`
	TargetCalories *float64   `json:"target_calories"`
	TargetProtein  *float64   `json:"target_protein"`
	TargetCarbs    *float64   `json:"target_carbs"`
	TargetFat      *float64   `json:"target_fat"`
	TargetDate     *time.Time `json:"target_date"`
}

func (r GoalRequest) applyTo(goal *model.Goal) {
	if r.GoalType != "" {
		goal.GoalType = r.GoalType
	}
	if r.TargetWeight != nil {
		goal.TargetWeight = r.TargetWeight
	}
	if r.TargetCalories != nil {
		goal.TargetCalories = r.TargetCalories
	}
	if r.TargetProtein != nil {
		goal.TargetProtein = r.TargetProtein
	}
	if r.TargetCarbs != nil {
		goal.TargetCarbs = r.TargetCarbs
	}
	if r.TargetFat != nil {
		goal.TargetFat = r.TargetFat
	}
	if r.TargetDate != nil {
		goal.TargetDate = r.TargetDate
	}
}

// CreateGoal stores a goal and deactivates the user's other active goals of the same type.
func (s *Server) CreateGoal(c *gin.Context) {
	var req GoalRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.GoalType == "" {
		detail(c, http.StatusUnprocessableEntity, "goal_type is required")
		return
	}
	user, _ := auth.CurrentUser(c)

	goal := &model.Goal{UserID: user.ID}
	req.applyTo(goal)
	if err := s.db.CreateGoal(goal); err != nil {
		s.logger.Error("Failed to create goal", "user_id", user.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to create goal")
		return
	}
	c.JSON(http.StatusOK, goal)
}

// ListGoals returns the user's goals, newest first. Only active goals unless active_only=false.
func (s *Server) ListGoals(c *gin.Context) {
	activeOnly := true
	if v := c.Query("active_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			detail(c, http.StatusUnprocessableEntity, "active_only must be a boolean")
			return
		}
		activeOnly = parsed
	}
	user, _ := auth.CurrentUser(c)

	goals, err := s.db.ListGoals(user.ID, activeOnly)
	if err != nil {
		s.logger.Error("Failed to list goals", "user_id", user.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to list goals")
		return
	}
	c.JSON(http.StatusOK, goals)
}

func (s *Server) loadGoal(c *gin.Context) (*model.Goal, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	user, _ := auth.CurrentUser(c)
	goal, err := s.db.GetGoal(user.ID, id)
	if errors.Is(err, db.ErrNotFound) {
		detail(c, http.StatusNotFound, "Goal not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("Failed to load goal", "goal_id", id, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to load goal")
		return nil, false
	}
	return goal, true
}

func (s *Server) GetGoal(c *gin.Context) {
	if goal, ok := s.loadGoal(c); ok {
		c.JSON(http.StatusOK, goal)
	}
}

func (s *Server) UpdateGoal(c *gin.Context) {
	goal, ok := s.loadGoal(c)
	if !ok {
		return
	}
	var req GoalRequest
	if !bindJSON(c, &req) {
		return
	}
	req.applyTo(goal)
	if err := s.db.UpdateGoal(goal); err != nil {
		s.logger.Error("Failed to update goal", "goal_id", goal.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to update goal")
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (s *Server) DeleteGoal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(c)
	err := s.db.DeleteGoal(user.ID, id)
	if errors.Is(err, db.ErrNotFound) {
		detail(c, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to delete goal", "goal_id", id, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to delete goal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}
