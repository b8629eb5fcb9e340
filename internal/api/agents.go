package api

import (
	"encoding/json"
	"net/http"

	"nutribot/internal/agent"
	"nutribot/internal/auth"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
)

// GenerateRecipe returns a ChefGenius recipe.
func (s *Server) GenerateRecipe(c *gin.Context) {
	var req agent.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := s.agents.Recipe.Generate(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("Recipe generation failed", "error", err)
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (s *Server) RegionalMealPlan(c *gin.Context) {
	var req agent.RegionalPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Regional.GenerateMealPlan(c.Request.Context(), req)
	s.agentResult(c, http.StatusCreated, "Regional meal plan generated successfully", plan, err)
}

func (s *Server) RegionalRecipe(c *gin.Context) {
	var req agent.RegionalRecipeRequest
	if !bindJSON(c, &req) {
		return
	}
	recipe, err := s.agents.Regional.GenerateRecipe(c.Request.Context(), req)
	s.agentResult(c, http.StatusCreated, "Regional recipe generated successfully", recipe, err)
}

func (s *Server) AdaptRegionalPlan(c *gin.Context) {
	var req agent.RegionalAdaptRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Regional.AdaptPlan(c.Request.Context(), req)
	s.agentResult(c, http.StatusOK, "Regional meal plan adapted successfully", plan, err)
}

func (s *Server) BudgetMealPlan(c *gin.Context) {
	var req agent.BudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Budget.GeneratePlan(c.Request.Context(), req)
	s.agentResult(c, http.StatusCreated, "Budget meal plan generated successfully", plan, err)
}

func (s *Server) AdaptBudgetPlan(c *gin.Context) {
	var req agent.BudgetAdaptRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Budget.AdaptPlan(c.Request.Context(), req)
	s.agentResult(c, http.StatusOK, "Budget meal plan adapted successfully", plan, err)
}

func (s *Server) WorkoutPlan(c *gin.Context) {
	var req agent.WorkoutRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Fitness.GenerateWorkoutPlan(c.Request.Context(), req)
	s.agentResult(c, http.StatusCreated, "Workout plan generated successfully", plan, err)
}

func (s *Server) AdaptWorkoutPlan(c *gin.Context) {
	var req agent.WorkoutAdaptRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Fitness.AdaptWorkoutPlan(c.Request.Context(), req)
	s.agentResult(c, http.StatusOK, "Workout plan adapted successfully", plan, err)
}

// GenerateMealPlan builds a structured 7-day plan and saves it for the user.
func (s *Server) GenerateMealPlan(c *gin.Context) {
	var req agent.MealPlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Planner.Generate(c.Request.Context(), req)
	if err != nil {
		s.agentResult(c, 0, "", nil, err)
		return
	}

	saved := gin.H{"success": true, "message": "Meal plan generated successfully", "data": plan}
	if raw, err := json.Marshal(plan.MealPlan); err == nil {
		user, _ := auth.CurrentUser(c)
		record := &model.MealPlan{
			UserID:          &user.ID,
			TargetCalories:  req.TargetCalories,
			MealsPerDay:     req.MealsPerDay,
			RegionOrCuisine: req.RegionOrCuisine,
			Plan:            raw,
		}
		if err := s.db.CreateMealPlan(record); err != nil {
			s.logger.Warn("Failed to save meal plan", "error", err)
		} else {
			saved["meal_plan_id"] = record.ID
		}
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) AdaptMealPlan(c *gin.Context) {
	var req agent.MealPlanAdaptRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := s.agents.Planner.Adapt(c.Request.Context(), req)
	s.agentResult(c, http.StatusOK, "Meal plan adapted successfully", plan, err)
}

func (s *Server) AnalyzeNutrients(c *gin.Context) {
	var req agent.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	analysis, err := s.agents.Nutrient.Analyze(c.Request.Context(), req)
	s.agentResult(c, http.StatusOK, "Nutrition analysis completed", analysis, err)
}

// LogAnalyzedMeal analyzes a food and records it in the user's meal log.
func (s *Server) LogAnalyzedMeal(c *gin.Context) {
	var req agent.LogMealRequest
	if !bindJSON(c, &req) {
		return
	}
	user, _ := auth.CurrentUser(c)
	logged, err := s.agents.Nutrient.LogMeal(c.Request.Context(), user.ID, req)
	s.agentResult(c, http.StatusCreated, "Meal logged successfully", logged, err)
}
