// Package api exposes the chatbot, the agents and the user data over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"nutribot/internal/agent"
	"nutribot/internal/auth"
	"nutribot/internal/chatbot"
	"nutribot/internal/config"
	"nutribot/internal/credential"
	"nutribot/internal/db"
	"nutribot/internal/llm"
	"nutribot/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// Server holds everything the handlers need.
type Server struct {
	cfg     *config.Config
	db      db.Service
	pool    *credential.Pool
	client  llm.Client
	agents  *agent.Set
	chat    *chatbot.Manager
	tokens  *auth.Tokens
	limiter ratelimit.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// Deps are the collaborators of a Server. Limiter may be nil to disable chat rate limiting.
type Deps struct {
	Config  *config.Config
	DB      db.Service
	Pool    *credential.Pool
	Client  llm.Client
	Agents  *agent.Set
	Chat    *chatbot.Manager
	Limiter ratelimit.Limiter
	Logger  *slog.Logger
}

// NewServer creates a Server from its dependencies.
func NewServer(deps Deps) *Server {
	return &Server{
		cfg:     deps.Config,
		db:      deps.DB,
		pool:    deps.Pool,
		client:  deps.Client,
		agents:  deps.Agents,
		chat:    deps.Chat,
		tokens:  auth.NewTokens(deps.Config.Auth),
		limiter: deps.Limiter,
		logger:  deps.Logger.With("component", "api"),
		now:     time.Now,
	}
}

// SetupRoutes registers every /api route on router.
func (s *Server) SetupRoutes(router *gin.Engine) {
	requireUser := auth.RequireUser(s.tokens, s.db)
	chatLimit := ratelimit.Middleware(s.limiter, s.cfg.Chatbot.RateLimitPerMinute, userKey, s.logger)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.Register)
		authGroup.POST("/login", s.Login)
		authGroup.GET("/me", requireUser, s.Me)
	}

	users := api.Group("/users", requireUser)
	{
		users.GET("/profile", s.GetProfile)
		users.PUT("/profile", s.UpdateProfile)
	}

	tracking := api.Group("/tracking", requireUser)
	{
		tracking.GET("/daily/:date", s.DailyTracking)
		tracking.GET("/weekly", s.WeeklyTracking)
		tracking.GET("/progress", s.ProgressSummary)
	}

	recipes := api.Group("/recipes")
	{
		recipes.GET("/cuisines", s.ListCuisines)
		recipes.GET("/meal-types", s.ListMealTypes)
	}

	chatGroup := api.Group("/chatbot")
	{
		chatGroup.POST("/chat", requireUser, chatLimit, s.Chat)
		chatGroup.POST("/chat/simple", requireUser, chatLimit, s.SimpleChat)
		chatGroup.GET("/agents", s.ListAgents)
		chatGroup.GET("/health", s.ChatHealth)
	}

	status := api.Group("", requireUser)
	{
		status.GET("/api-keys/status", s.KeysStatus)
		status.POST("/api-keys/reset", s.ResetKeys)
		status.POST("/api-keys/test", s.TestKeys)
		status.GET("/system/health", s.SystemHealth)
	}

	agents := api.Group("", requireUser)
	{
		agents.POST("/recipes/generate", s.GenerateRecipe)
		agents.POST("/culinary/meal-plan", s.RegionalMealPlan)
		agents.POST("/culinary/recipe", s.RegionalRecipe)
		agents.POST("/culinary/adapt", s.AdaptRegionalPlan)
		agents.POST("/budget/meal-plan", s.BudgetMealPlan)
		agents.POST("/budget/adapt", s.AdaptBudgetPlan)
		agents.POST("/fitness/workout-plan", s.WorkoutPlan)
		agents.POST("/fitness/adapt", s.AdaptWorkoutPlan)
		agents.POST("/advanced-meal-planner/generate", s.GenerateMealPlan)
		agents.POST("/advanced-meal-planner/adapt", s.AdaptMealPlan)
		agents.POST("/nutrient-analyzer/analyze", s.AnalyzeNutrients)
		agents.POST("/nutrient-analyzer/log-meal", s.LogAnalyzedMeal)
	}

	goals := api.Group("/goals", requireUser)
	{
		goals.POST("", s.CreateGoal)
		goals.GET("", s.ListGoals)
		goals.GET("/:id", s.GetGoal)
		goals.PUT("/:id", s.UpdateGoal)
		goals.DELETE("/:id", s.DeleteGoal)
	}

	meals := api.Group("/meals")
	{
		meals.POST("/log", requireUser, s.LogMeal)
		meals.GET("/history", requireUser, s.MealHistory)
		meals.GET("/food-items", s.ListFoodItems)
		meals.GET("/food-items/search", s.SearchFoodItems)
	}
}

func userKey(c *gin.Context) string {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return ""
	}
	return "chat:" + strconv.FormatUint(uint64(user.ID), 10)
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// bindJSON binds the body into req and answers 422 when it does not validate.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

// agentResult writes the envelope shared by the agent endpoints. Output that could not be
// decoded is reported with success false; any other failure is a 500.
func (s *Server) agentResult(c *gin.Context, status int, message string, data any, err error) {
	if err != nil {
		if agent.IsJSONError(err) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
			return
		}
		s.logger.Error("Agent request failed", "path", c.FullPath(), "error", err, "credential_error", llm.IsCredentialError(err))
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(status, gin.H{"success": true, "message": message, "data": data})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
