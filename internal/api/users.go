package api

import (
	"errors"
	"net/http"

	"nutribot/internal/auth"
	"nutribot/internal/db"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
)

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email              string   `json:"email" binding:"required,email"`
	Username           string   `json:"username" binding:"required"`
	Password           string   `json:"password" binding:"required"`
	FullName           string   `json:"full_name"`
	Age                *int     `json:"age" binding:"omitempty,min=1,max=150"`
	Weight             *float64 `json:"weight" binding:"omitempty,gt=0"`
	Height             *float64 `json:"height" binding:"omitempty,gt=0"`
	ActivityLevel      string   `json:"activity_level"`
	HealthConditions   []string `json:"health_conditions"`
	DietaryPreferences []string `json:"dietary_preferences"`
	CuisinePref        string   `json:"cuisine_pref"`
}

// LoginRequest accepts either a JSON body or an OAuth2-style password form. Username may
// also be the account's email.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Register creates a user.
func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, err := s.db.GetUserByEmail(req.Email); err == nil {
		detail(c, http.StatusBadRequest, "Email already registered")
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		s.logger.Error("Failed to look up email", "error", err)
		detail(c, http.StatusInternalServerError, "Database error")
		return
	}
	if _, err := s.db.GetUserByUsername(req.Username); err == nil {
		detail(c, http.StatusBadRequest, "Username already taken")
		return
	} else if !errors.Is(err, db.ErrNotFound) {
		s.logger.Error("Failed to look up username", "error", err)
		detail(c, http.StatusInternalServerError, "Database error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password", "error", err)
		detail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	activity := req.ActivityLevel
	if activity == "" {
		activity = "moderately_active"
	}
	cuisine := req.CuisinePref
	if cuisine == "" {
		cuisine = "mixed"
	}
	user := &model.User{
		Email:              req.Email,
		Username:           req.Username,
		HashedPassword:     hashed,
		FullName:           req.FullName,
		Age:                req.Age,
		Weight:             req.Weight,
		Height:             req.Height,
		ActivityLevel:      activity,
		HealthConditions:   nonNilStrings(req.HealthConditions),
		DietaryPreferences: nonNilStrings(req.DietaryPreferences),
		CuisinePref:        cuisine,
		IsActive:           true,
	}
	if err := s.db.CreateUser(user); err != nil {
		s.logger.Error("Failed to create user", "error", err)
		detail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}
	s.logger.Info("User registered", "user_id", user.ID)
	c.JSON(http.StatusOK, user)
}

// Login exchanges credentials for a bearer token.
func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := auth.Authenticate(s.db, req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.Header("WWW-Authenticate", "Bearer")
		detail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if err != nil {
		s.logger.Error("Login lookup failed", "error", err)
		detail(c, http.StatusInternalServerError, "Database error")
		return
	}

	token, expires, err := s.tokens.Issue(user.Email)
	if err != nil {
		s.logger.Error("Failed to issue token", "error", err)
		detail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expires.UTC(),
	})
}

// Me returns the authenticated user.
func (s *Server) Me(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, user)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
