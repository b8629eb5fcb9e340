// Package chatbot routes free-text queries to the domain agents. It keeps a short per-user
// conversation memory, fills agent inputs from the conversation and answers with canned text
// when no API key can serve the request.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nutribot/internal/agent"
	"nutribot/internal/db"
	"nutribot/internal/llm"
	"nutribot/internal/model"
)

// UserContext is the profile data the router and agents use.
type UserContext struct {
	UserID             uint     `json:"user_id,omitempty"`
	Age                *int     `json:"age,omitempty"`
	Weight             *float64 `json:"weight,omitempty"`
	Height             *float64 `json:"height,omitempty"`
	ActivityLevel      string   `json:"activity_level,omitempty"`
	HealthConditions   []string `json:"health_conditions,omitempty"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	CuisinePref        string   `json:"cuisine_pref,omitempty"`
	FullName           string   `json:"full_name,omitempty"`
}

func userContextFrom(u *model.User) UserContext {
	return UserContext{
		UserID:             u.ID,
		Age:                u.Age,
		Weight:             u.Weight,
		Height:             u.Height,
		ActivityLevel:      u.ActivityLevel,
		HealthConditions:   u.HealthConditions,
		DietaryPreferences: u.DietaryPreferences,
		CuisinePref:        u.CuisinePref,
		FullName:           u.FullName,
	}
}

// Result is the chatbot's answer to one query.
type Result struct {
	Success       bool        `json:"success"`
	AgentUsed     string      `json:"agent_used"`
	Response      any         `json:"response"`
	UserContext   UserContext `json:"user_context"`
	NeedsMoreInfo bool        `json:"needs_more_info,omitempty"`
	Fallback      bool        `json:"fallback,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// Text returns the reply as plain text.
func (r *Result) Text() string {
	if !r.Success {
		return "Sorry, I encountered an error: " + r.Error
	}
	return responseText(r.Response)
}

// AgentInfo describes one agent the chatbot can route to.
type AgentInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var agentInfos = []AgentInfo{
	{agent.ChefGenius, "Recipe generation and cooking advice"},
	{agent.CulinaryExplorer, "Regional and cultural cuisine exploration"},
	{agent.BudgetChef, "Budget-friendly meal planning"},
	{agent.FitMentor, "Fitness and workout planning"},
	{agent.AdvancedMealPlanner, "Comprehensive 7-day meal planning"},
	{agent.NutrientAnalyzer, "Nutritional analysis and tracking"},
}

// Manager answers chat queries.
type Manager struct {
	agents *agent.Set
	memory *Memory
	db     db.Service
	logger *slog.Logger
}

// NewManager creates a Manager. dbService may be nil, in which case queries run without a
// user profile.
func NewManager(agents *agent.Set, memory *Memory, dbService db.Service, logger *slog.Logger) *Manager {
	return &Manager{
		agents: agents,
		memory: memory,
		db:     dbService,
		logger: logger.With("component", "chatbot"),
	}
}

// Agents lists the agents queries can be routed to.
func (m *Manager) Agents() []AgentInfo {
	out := make([]AgentInfo, len(agentInfos))
	copy(out, agentInfos)
	return out
}

// Memory returns the conversation memory.
func (m *Manager) Memory() *Memory {
	return m.memory
}

func (m *Manager) userContext(userID uint) UserContext {
	if m.db == nil {
		return UserContext{}
	}
	user, err := m.db.GetUserByID(userID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			m.logger.Error("Failed to load user context", "user_id", userID, "error", err)
		}
		return UserContext{}
	}
	return userContextFrom(user)
}

// HandleQuery routes query for userID and returns the agent's answer. Credential failures give
// a canned fallback with Success set; unusable JSON from an agent gives Success false. Any other
// agent error is returned.
func (m *Manager) HandleQuery(ctx context.Context, userID uint, query string) (*Result, error) {
	history := m.memory.History(userID)
	agentName := DetectAgent(query, history)
	m.logger.Info("Routing query", "user_id", userID, "agent", agentName)

	user := m.userContext(userID)

	check := CheckMissingFields(agentName, query, user, history)
	if check.Missing {
		m.memory.Add(userID, query, check.Message, agentName)
		return &Result{
			Success:       true,
			AgentUsed:     agentName,
			Response:      check.Message,
			UserContext:   user,
			NeedsMoreInfo: true,
		}, nil
	}

	response, err := m.dispatch(ctx, agentName, query, user, check.Slots)
	switch {
	case err == nil:
	case errors.Is(err, llm.ErrNoCredentials) || llm.IsCredentialError(err):
		m.logger.Warn("No API key could serve the query, using fallback", "agent", agentName, "error", err)
		text := FallbackResponse(agentName, query)
		m.memory.Add(userID, query, text, agentName)
		return &Result{
			Success:     true,
			AgentUsed:   agentName,
			Response:    text,
			UserContext: user,
			Fallback:    true,
		}, nil
	case agent.IsJSONError(err):
		m.logger.Warn("Agent returned unusable output", "agent", agentName, "error", err)
		return &Result{Success: false, AgentUsed: agentName, UserContext: user, Error: err.Error()}, nil
	default:
		return nil, fmt.Errorf("%s agent failed: %w", agentName, err)
	}

	m.memory.Add(userID, query, responseText(response), agentName)
	return &Result{
		Success:     true,
		AgentUsed:   agentName,
		Response:    response,
		UserContext: user,
	}, nil
}

// specificDishKeywords switch CulinaryExplorer from a meal plan to a single recipe.
var specificDishKeywords = []string{
	"recipe", "how to make", "how to cook", "dosa", "curry", "biryani", "dal", "roti", "naan", "samosa",
	"vada", "idli", "sambar", "chutney",
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func (m *Manager) dispatch(ctx context.Context, agentName, query string, user UserContext, s Slots) (any, error) {
	diet := s.DietaryRestrictions
	if diet == nil {
		diet = user.DietaryPreferences
	}

	switch agentName {
	case agent.ChefGenius:
		return m.agents.Recipe.Generate(ctx, agent.RecipeRequest{
			Ingredients:         s.Ingredients,
			DietaryRestrictions: diet,
			TimeConstraint:      firstPositive(s.Minutes, 30),
			MealType:            firstNonEmpty(s.MealType, "lunch"),
			NoCache:             true,
		})

	case agent.CulinaryExplorer:
		region := firstNonEmpty(s.CuisineRegion, user.CuisinePref, "indian")
		skill := firstNonEmpty(s.SkillLevel, "intermediate")
		if containsAny(strings.ToLower(query), specificDishKeywords) {
			return m.agents.Regional.GenerateRecipe(ctx, agent.RegionalRecipeRequest{
				CuisineRegion:        region,
				DishName:             agent.DishName(query),
				DietaryRestrictions:  diet,
				TimeConstraint:       firstPositive(s.Minutes, 60),
				CookingSkill:         skill,
				AvailableIngredients: s.Ingredients,
			})
		}
		return m.agents.Regional.GenerateMealPlan(ctx, agent.RegionalPlanRequest{
			CuisineRegion:        region,
			MealType:             firstNonEmpty(s.MealType, "lunch"),
			DietaryRestrictions:  diet,
			TimeConstraint:       firstPositive(s.Minutes, 30),
			CookingSkill:         skill,
			AvailableIngredients: s.Ingredients,
		})

	case agent.BudgetChef:
		budget := s.BudgetPerDay
		if budget <= 0 {
			budget = 200
		}
		calories := firstPositive(s.Calories, 2000)
		return m.agents.Budget.GeneratePlan(ctx, agent.BudgetRequest{
			BudgetPerDay:       budget,
			CalorieTarget:      &calories,
			DietaryPreferences: diet,
			MealsPerDay:        firstPositive(s.MealsPerDay, 3),
			CookingTime:        "moderate",
			SkillLevel:         firstNonEmpty(s.SkillLevel, "intermediate"),
			Age:                user.Age,
			Weight:             user.Weight,
			ActivityLevel:      firstNonEmpty(s.ActivityLevel, user.ActivityLevel, "moderate"),
		})

	case agent.FitMentor:
		return m.agents.Fitness.GenerateWorkoutPlan(ctx, agent.WorkoutRequest{
			ActivityLevel: firstNonEmpty(s.ActivityLevel, user.ActivityLevel, "moderately_active"),
			FitnessGoal:   firstNonEmpty(s.FitnessGoal, "muscle_gain"),
			TimePerDay:    firstPositive(s.Minutes, 60),
			Equipment:     firstNonEmpty(s.Equipment, "bodyweight"),
			Constraints:   user.HealthConditions,
			Age:           user.Age,
			Weight:        user.Weight,
		})

	case agent.AdvancedMealPlanner:
		return m.agents.Planner.Generate(ctx, agent.MealPlanRequest{
			TargetCalories:      firstPositive(s.Calories, 2000),
			MealsPerDay:         firstPositive(s.MealsPerDay, 3),
			FoodPreferences:     user.DietaryPreferences,
			DietaryRestrictions: diet,
			RegionOrCuisine:     firstNonEmpty(s.CuisineRegion, user.CuisinePref, "mixed"),
			UserNotes:           query,
		})

	case agent.NutrientAnalyzer:
		return m.agents.Nutrient.Analyze(ctx, agent.AnalyzeRequest{
			FoodName:    firstNonEmpty(s.FoodName, query),
			ServingSize: firstNonEmpty(s.ServingSize, "100g"),
		})
	}
	return nil, fmt.Errorf("unknown agent %q", agentName)
}

// responseText is the text remembered for a turn and returned by the simple chat endpoint.
func responseText(response any) string {
	switch r := response.(type) {
	case string:
		return r
	case *agent.Recipe:
		return r.Recipe
	case *agent.RegionalRecipe:
		return r.Recipe
	case *agent.RegionalPlan:
		return r.MealPlan
	case *agent.BudgetPlan:
		return r.MealPlan
	case *agent.WorkoutPlan:
		return r.WorkoutPlan
	case *agent.StructuredPlan:
		return r.RawResponse
	case *agent.Analysis:
		return r.RawAnalysis
	case nil:
		return ""
	}
	return fmt.Sprint(response)
}
