package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"nutribot/internal/llm"
)

const plannerDescription = `
You are AdvancedMealPlanner, a clinically-minded nutritionist & meal planner.
Your job: produce a practical, healthy 7-day meal plan tailored to the user's
inputs (target calories, meals per day, preferences, budget, work schedule,
equipment, and dietary restrictions). Prioritize nutrition, food variety,
cost-awareness and realistic meal prep for busy schedules.`

const plannerInstructions = `
REQUIRED OUTPUT RULES (VERY IMPORTANT):
- Output ONLY valid JSON (no extra commentary). The final output must be a JSON object.
- The JSON MUST follow the schema described below.

INPUT HANDLING:
- Use the user's target_calories (daily), meals_per_day, food_preferences (list),
  budget_per_day, work_hours_per_day, dietary_restrictions (list), equipment (list),
  time_per_meal (minutes average), and whether they want vegetarian/vegan emphasis.
- If some fields are missing, make reasonable assumptions but state them inside "meta.assumptions".

PLANNING LOGIC:
1. Split target_calories across meals according to common distribution (e.g., 25% breakfast, 35% lunch, 25% dinner, 15% snacks) or adapt to meals_per_day.
2. Prefer meals that match food_preferences and comply with dietary_restrictions.
3. Respect budget_per_day by selecting cost-conscious staples and suggesting swaps.
4. Make recipes realistic given equipment and time_per_meal. For heavy work_hours_per_day, prefer quick prep / make-ahead meals.
5. Aim for daily macro balance (protein-carbs-fat) roughly appropriate for general healthy eating. Provide protein-forward or low-carb variations only if requested.
6. Provide variety across the 7 days and reuse ingredients to reduce waste/cost.

OUTPUT SCHEMA (Return this exact JSON structure):
{
  "meta": {
    "assumptions": "...string describing any assumptions made...",
    "total_daily_calories": int,
    "meals_per_day": int,
    "budget_per_day": number (in Indian Rupees ₹),
    "food_preferences": [ ... ],
    "dietary_restrictions": [ ... ]
  },
  "plan": {
    "day_1": [
      {
        "meal_label": "Breakfast",
        "target_calories": int,
        "recipe_name": "string",
        "ingredients": [{"name":"", "qty":"", "est_cost": number}],
        "macros": {"calories":int,"protein_g":float,"carbs_g":float,"fat_g":float},
        "prep_time_min": int,
        "make_ahead": "yes/no",
        "notes": "short cooking/packing tips"
      },
      ... up to meals_per_day entries ...
    ],
    "day_2": [...],
    ...
    "day_7": [...]
  },
  "summary": {
    "avg_daily_cost": number,
    "avg_daily_calories": int,
    "weekly_shopping_list": [{"name":"", "qty_est":"", "est_cost": number}],
    "progression_tip": "short text"
  }
}

CALCULATION RULES:
- Provide numeric macros for each meal; totals for each day should approximate the target daily calories.
- Round estimates reasonably (two decimals for grams / two decimals for currency).
- ALL COSTS MUST BE IN INDIAN RUPEES (₹) - use realistic Indian market prices for ingredients.
- If cost data isn't exact, give approximate est_cost values in ₹.
- If a requested preference item is unavailable or conflicts with restrictions, pick the closest appropriate swap and explain in meta.assumptions.

If user input is ambiguous, make a reasonable assumption and include it in meta.assumptions.`

// plannerMaxTokens leaves room for seven days of structured meals.
const plannerMaxTokens = 8192

// MealPlanRequest holds the inputs for a 7-day plan. Zero values fall back to defaults in
// BuildQuery.
type MealPlanRequest struct {
	TargetCalories      int      `json:"target_calories" binding:"required,gt=0"`
	MealsPerDay         int      `json:"meals_per_day" binding:"omitempty,min=1,max=6"`
	FoodPreferences     []string `json:"food_preferences"`
	BudgetPerDay        *float64 `json:"budget_per_day" binding:"omitempty,gte=0"`
	WorkHoursPerDay     *int     `json:"work_hours_per_day" binding:"omitempty,gte=0,lte=24"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Equipment           []string `json:"equipment"`
	TimePerMealMin      int      `json:"time_per_meal_min" binding:"omitempty,min=5"`
	RegionOrCuisine     string   `json:"region_or_cuisine"`
	UserNotes           string   `json:"user_notes"`
}

// MealPlanAdaptRequest revises a structured plan.
type MealPlanAdaptRequest struct {
	CurrentPlan     map[string]any `json:"current_plan" binding:"required"`
	Feedback        string         `json:"feedback" binding:"required"`
	NewRequirements map[string]any `json:"new_requirements"`
}

// StructuredPlan is a plan decoded from the agent's JSON output.
type StructuredPlan struct {
	MealPlan    map[string]any `json:"meal_plan"`
	RawResponse string         `json:"raw_response"`
}

// AdaptedStructuredPlan is a revised structured plan.
type AdaptedStructuredPlan struct {
	AdaptedPlan     map[string]any `json:"adapted_plan"`
	Feedback        string         `json:"feedback"`
	NewRequirements map[string]any `json:"new_requirements"`
}

// MealPlanner is AdvancedMealPlanner. It always asks for JSON output.
type MealPlanner struct {
	runner
}

// NewMealPlanner creates the AdvancedMealPlanner agent.
func NewMealPlanner(client llm.Client, logger *slog.Logger) *MealPlanner {
	r := newRunner(AdvancedMealPlanner, client, plannerDescription, plannerInstructions, logger)
	r.maxTokens = plannerMaxTokens
	return &MealPlanner{runner: r}
}

// decimal formats v the way the plan schema shows numbers, always with a fractional part.
func decimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// BuildQuery renders the planning prompt for req.
func BuildQuery(req MealPlanRequest) string {
	calories := req.TargetCalories
	if calories <= 0 {
		calories = 2000
	}
	budget := 50.0
	if req.BudgetPerDay != nil {
		budget = *req.BudgetPerDay
	}
	workHours := 8
	if req.WorkHoursPerDay != nil {
		workHours = *req.WorkHoursPerDay
	}

	var b strings.Builder
	b.WriteString("Create a 7-day meal plan JSON for the following user inputs.\n")
	b.WriteString("Return ONLY a single JSON object exactly matching the schema in your instructions.\n\n")
	b.WriteString("User Inputs:\n")
	fmt.Fprintf(&b, "- target_calories: %d\n", calories)
	fmt.Fprintf(&b, "- meals_per_day: %d\n", orDefaultInt(req.MealsPerDay, 3))
	fmt.Fprintf(&b, "- food_preferences: %s\n", joinOr(req.FoodPreferences, "none"))
	fmt.Fprintf(&b, "- budget_per_day: %s\n", decimal(budget))
	fmt.Fprintf(&b, "- work_hours_per_day: %d\n", workHours)
	fmt.Fprintf(&b, "- dietary_restrictions: %s\n", joinOr(req.DietaryRestrictions, "none"))
	fmt.Fprintf(&b, "- equipment: %s\n", joinOr(req.Equipment, "basic stove"))
	fmt.Fprintf(&b, "- time_per_meal_min: %d\n", orDefaultInt(req.TimePerMealMin, 30))
	fmt.Fprintf(&b, "- region_or_cuisine: %s\n", orDefault(req.RegionOrCuisine, "no specific region"))
	fmt.Fprintf(&b, "- user_notes: %s\n\n", req.UserNotes)
	b.WriteString("Please generate the 7-day plan now.")
	return b.String()
}

// Generate asks for a 7-day plan and decodes it. Output without a usable JSON object yields
// ErrNoJSON, ErrIncompleteJSON or a parse error.
func (p *MealPlanner) Generate(ctx context.Context, req MealPlanRequest) (*StructuredPlan, error) {
	text, err := p.run(ctx, BuildQuery(req), true)
	if err != nil {
		return nil, fmt.Errorf("meal plan generation failed: %w", err)
	}
	plan, err := DecodeJSON(text)
	if err != nil {
		p.logger.Warn("Planner output was not usable JSON", "error", err)
		return nil, err
	}
	return &StructuredPlan{MealPlan: plan, RawResponse: text}, nil
}

// Adapt revises a structured plan, keeping its JSON shape.
func (p *MealPlanner) Adapt(ctx context.Context, req MealPlanAdaptRequest) (*AdaptedStructuredPlan, error) {
	current, err := json.MarshalIndent(req.CurrentPlan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode current plan: %w", err)
	}
	requirements := req.NewRequirements
	if requirements == nil {
		requirements = map[string]any{}
	}
	extra, err := json.MarshalIndent(requirements, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode new requirements: %w", err)
	}

	prompt := lines(
		"Please adapt the following 7-day meal plan based on user feedback and new requirements.",
		"\nCurrent Plan:",
		string(current),
		"\nUser Feedback:",
		req.Feedback,
		"\nNew Requirements:",
		string(extra),
		"\nPlease provide an updated 7-day meal plan that addresses the feedback while maintaining",
		"the same JSON structure and improving the plan based on the new requirements.",
	)
	text, err := p.run(ctx, prompt, true)
	if err != nil {
		return nil, fmt.Errorf("meal plan adaptation failed: %w", err)
	}
	plan, err := DecodeJSON(text)
	if err != nil {
		p.logger.Warn("Adapted plan was not usable JSON", "error", err)
		return nil, err
	}
	return &AdaptedStructuredPlan{AdaptedPlan: plan, Feedback: req.Feedback, NewRequirements: req.NewRequirements}, nil
}
