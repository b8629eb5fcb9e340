package agent

import (
	"context"
	"fmt"
	"log/slog"

	"nutribot/internal/llm"
)

const budgetDescription = `
You are BudgetChef, a savvy culinary planner who balances nutrition and cost. 🛒💰

Your mission: create meal plans that maximize nutrition and flavor while staying
within the user's daily or weekly budget.`

const budgetInstructions = `
Approach each meal plan with these steps:

1. Input Analysis 📝
   - User's budget per day (or week)
   - Calorie target (if provided; else estimate from age/weight/activity)
   - Dietary preferences or restrictions
   - Number of meals/snacks per day
   - Available cooking time & skill level

2. Cost & Nutrition Mapping 💲
   - Use a reference table of cost per food item (either from dataset or approximations)
   - Estimate calories, macros, and cost for each food
   - Select food items that meet calorie + macro goals while staying under budget

3. Optimization ⚙️
   - Apply a simple greedy approach:
     - Pick staple items (rice, lentils, eggs, etc.) first
     - Fill remaining calories with low-cost, nutrient-dense items

4. Presentation 🍽️
   - Use markdown to show:
     - Daily meal plan with cost + calories
     - Totals at the bottom (total cost, total calories)
   - Mark vegetarian 🌱, vegan 🌿, gluten-free 🌾, contains nuts 🥜
   - Include shopping list summary with estimated cost
   - Suggest storage or make-ahead tips to save money

5. Feedback 🔄
   - Accept user feedback on items they like/dislike
   - Adjust plan next time while staying within budget`

// BudgetRequest asks for a meal plan under a daily budget in rupees.
type BudgetRequest struct {
	BudgetPerDay       float64  `json:"budget_per_day" binding:"required,min=50,max=2000"`
	CalorieTarget      *int     `json:"calorie_target" binding:"omitempty,min=1000,max=5000"`
	DietaryPreferences []string `json:"dietary_preferences"`
	MealsPerDay        int      `json:"meals_per_day" binding:"omitempty,min=1,max=6"`
	CookingTime        string   `json:"cooking_time"`
	SkillLevel         string   `json:"skill_level"`
	Age                *int     `json:"age" binding:"omitempty,min=13,max=100"`
	Weight             *float64 `json:"weight" binding:"omitempty,min=30,max=300"`
	ActivityLevel      string   `json:"activity_level"`
}

// BudgetAdaptRequest revises a budget plan.
type BudgetAdaptRequest struct {
	CurrentPlan      string   `json:"current_plan" binding:"required"`
	Feedback         string   `json:"feedback" binding:"required"`
	NewBudget        *float64 `json:"new_budget" binding:"omitempty,min=50,max=2000"`
	NewCalorieTarget *int     `json:"new_calorie_target" binding:"omitempty,min=1000,max=5000"`
}

// BudgetPlan is BudgetChef's meal plan along with the inputs it was built from.
type BudgetPlan struct {
	MealPlan           string   `json:"meal_plan"`
	BudgetPerDay       float64  `json:"budget_per_day"`
	CalorieTarget      *int     `json:"calorie_target"`
	DietaryPreferences []string `json:"dietary_preferences"`
	MealsPerDay        int      `json:"meals_per_day"`
	CookingTime        string   `json:"cooking_time"`
	SkillLevel         string   `json:"skill_level"`
	Age                *int     `json:"age"`
	Weight             *float64 `json:"weight"`
	ActivityLevel      string   `json:"activity_level"`
}

// BudgetAgent is BudgetChef.
type BudgetAgent struct {
	runner
}

// NewBudgetAgent creates the BudgetChef agent.
func NewBudgetAgent(client llm.Client, logger *slog.Logger) *BudgetAgent {
	return &BudgetAgent{runner: newRunner(BudgetChef, client, budgetDescription, budgetInstructions, logger)}
}

// BudgetPrompt renders the generation prompt for req after defaults are applied.
func BudgetPrompt(req BudgetRequest) string {
	calories := fmt.Sprintf("Estimated calories based on %s activity level", req.ActivityLevel)
	if req.CalorieTarget != nil {
		calories = fmt.Sprintf("Target calories: %d", *req.CalorieTarget)
	}
	dietary := "No specific dietary preferences"
	if len(req.DietaryPreferences) > 0 {
		dietary = "Dietary preferences: " + joinOr(req.DietaryPreferences, "")
	}
	return lines(
		"Create a budget meal plan for me.",
		"\nMy details:",
		fmt.Sprintf("- Budget: ₹%s per day", num(req.BudgetPerDay)),
		"- "+calories,
		fmt.Sprintf("- Meals per day: %d", req.MealsPerDay),
		"- Cooking time available: "+req.CookingTime,
		"- Cooking skill level: "+req.SkillLevel,
		ageWeight(req.Age, req.Weight),
		dietary,
		"\nPlease create a detailed daily meal plan with cost breakdown, nutrition information, and shopping list.",
	)
}

// GeneratePlan returns a daily meal plan within req.BudgetPerDay.
func (a *BudgetAgent) GeneratePlan(ctx context.Context, req BudgetRequest) (*BudgetPlan, error) {
	req.MealsPerDay = orDefaultInt(req.MealsPerDay, 3)
	req.CookingTime = orDefault(req.CookingTime, "moderate")
	req.SkillLevel = orDefault(req.SkillLevel, "intermediate")
	req.ActivityLevel = orDefault(req.ActivityLevel, "moderate")

	text, err := a.run(ctx, BudgetPrompt(req), false)
	if err != nil {
		return nil, fmt.Errorf("budget meal plan generation failed: %w", err)
	}
	return &BudgetPlan{
		MealPlan:           text,
		BudgetPerDay:       req.BudgetPerDay,
		CalorieTarget:      req.CalorieTarget,
		DietaryPreferences: nonNil(req.DietaryPreferences),
		MealsPerDay:        req.MealsPerDay,
		CookingTime:        req.CookingTime,
		SkillLevel:         req.SkillLevel,
		Age:                req.Age,
		Weight:             req.Weight,
		ActivityLevel:      req.ActivityLevel,
	}, nil
}

// AdaptPlan revises a budget plan from feedback, optionally with a new budget or calorie target.
func (a *BudgetAgent) AdaptPlan(ctx context.Context, req BudgetAdaptRequest) (*AdaptedPlan, error) {
	changes := map[string]any{}
	budget, calories := "", ""
	if req.NewBudget != nil {
		budget = fmt.Sprintf("New budget: ₹%s per day", num(*req.NewBudget))
		changes["new_budget"] = *req.NewBudget
	}
	if req.NewCalorieTarget != nil {
		calories = fmt.Sprintf("New calorie target: %d", *req.NewCalorieTarget)
		changes["new_calorie_target"] = *req.NewCalorieTarget
	}

	prompt := lines(
		"Based on this feedback, please adapt the budget meal plan:",
		"\nCurrent Plan:",
		req.CurrentPlan,
		"\nUser Feedback:",
		req.Feedback,
		budget,
		calories,
		"\nPlease provide an updated budget meal plan that addresses the feedback while staying within budget constraints.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("budget plan adaptation failed: %w", err)
	}
	return &AdaptedPlan{AdaptedPlan: text, Feedback: req.Feedback, Changes: changes}, nil
}
