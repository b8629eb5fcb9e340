package api

import (
	"net/http"

	"nutribot/internal/auth"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
)

// ProfileUpdate changes only the profile fields it sets. Lists replace the stored list.
type ProfileUpdate struct {
	FullName           *string  `json:"full_name"`
	Age                *int     `json:"age" binding:"omitempty,min=1,max=150"`
	Weight             *float64 `json:"weight" binding:"omitempty,gt=0"`
	Height             *float64 `json:"height" binding:"omitempty,gt=0"`
	ActivityLevel      *string  `json:"activity_level"`
	HealthConditions   []string `json:"health_conditions"`
	DietaryPreferences []string `json:"dietary_preferences"`
	CuisinePref        *string  `json:"cuisine_pref"`
}

func (r ProfileUpdate) applyTo(user *model.User) {
	if r.FullName != nil {
		user.FullName = *r.FullName
	}
	if r.Age != nil {
		user.Age = r.Age
	}
	if r.Weight != nil {
		user.Weight = r.Weight
	}
	if r.Height != nil {
		user.Height = r.Height
	}
	if r.ActivityLevel != nil {
		user.ActivityLevel = *r.ActivityLevel
	}
	if r.HealthConditions != nil {
		user.HealthConditions = r.HealthConditions
	}
	if r.DietaryPreferences != nil {
		user.DietaryPreferences = r.DietaryPreferences
	}
	if r.CuisinePref != nil {
		user.CuisinePref = *r.CuisinePref
	}
}

// GetProfile returns the authenticated user's profile.
func (s *Server) GetProfile(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the profile fields the chatbot reads as defaults.
func (s *Server) UpdateProfile(c *gin.Context) {
	var req ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, _ := auth.CurrentUser(c)

	req.applyTo(user)
	if err := s.db.UpdateUser(user); err != nil {
		s.logger.Error("Failed to update profile", "user_id", user.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	s.logger.Info("Profile updated", "user_id", user.ID)
	c.JSON(http.StatusOK, user)
}
