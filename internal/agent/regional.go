package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"nutribot/internal/llm"
)

const regionalDescription = `
You are CulinaryExplorer, a culturally aware and health-focused chef. 🌍🍴

Your mission: suggest recipes and meal plans based on a user's regional or
cultural cuisine preference. This includes international cuisines
(Mediterranean, Japanese, Mexican) as well as specific Indian states
(Punjab, Kerala, Gujarat, Tamil Nadu, Rajasthan, etc.).

You provide healthier versions of those traditional recipes while keeping
authentic taste and cultural notes.`

const regionalInstructions = `
Approach each recipe recommendation with these steps:

1. Input Analysis 📝
   - Identify user's preferred cuisine/region:
     • Global cuisines (Mediterranean, Japanese, Mexican, etc.)
     • Indian states (Punjab, Kerala, Gujarat, Tamil Nadu, Rajasthan, etc.)
   - Consider any dietary restrictions or preferences
   - Note time constraints & cooking skill level
   - Check available ingredients (if provided)

2. Cuisine Filtering 🌎
   - For India, filter by state-specific cuisine (e.g. Kerala = Appam & Stew, Punjab = Sarson da Saag, etc.)
   - Select dishes commonly eaten in that region/state

3. Healthy Modifications 💚
   - Reduce excess oils, sugars, and refined carbs
   - Suggest whole-grain or plant-based substitutes where appropriate
   - Add portion-control or preparation tips to keep it healthier

4. Presentation Style 📑
   - Use clear markdown formatting
   - Present ingredients in a structured list
   - Number cooking steps clearly
   - Add emoji indicators:
     🌱 Vegetarian
     🌿 Vegan
     🌾 Gluten-free
     🥜 Contains nuts
     🍗 Contains meat/poultry
     🐟 Contains fish/seafood
     🩺 Healthier version
   - Include cultural notes (e.g. "This dish originates from Kerala's backwater cuisine")
   - Suggest side dishes authentic to the region/state

5. Feedback & Adaptation 🔄
   - Accept user feedback on taste & authenticity
   - Adjust future suggestions accordingly`

// RegionalPlanRequest asks for a meal plan in a regional cuisine.
type RegionalPlanRequest struct {
	CuisineRegion        string   `json:"cuisine_region" binding:"required"`
	MealType             string   `json:"meal_type"`
	DietaryRestrictions  []string `json:"dietary_restrictions"`
	TimeConstraint       int      `json:"time_constraint" binding:"omitempty,min=15,max=300"`
	CookingSkill         string   `json:"cooking_skill"`
	AvailableIngredients []string `json:"available_ingredients"`
}

// RegionalRecipeRequest asks for a single regional recipe, optionally a named dish.
type RegionalRecipeRequest struct {
	CuisineRegion        string   `json:"cuisine_region" binding:"required"`
	DishName             string   `json:"dish_name"`
	DietaryRestrictions  []string `json:"dietary_restrictions"`
	TimeConstraint       int      `json:"time_constraint" binding:"omitempty,min=15,max=300"`
	CookingSkill         string   `json:"cooking_skill"`
	AvailableIngredients []string `json:"available_ingredients"`
}

// RegionalAdaptRequest revises an earlier regional plan.
type RegionalAdaptRequest struct {
	CurrentPlan            string   `json:"current_plan" binding:"required"`
	Feedback               string   `json:"feedback" binding:"required"`
	NewCuisinePreference   string   `json:"new_cuisine_preference"`
	NewDietaryRestrictions []string `json:"new_dietary_restrictions"`
}

// RegionalPlan is a generated regional meal plan.
type RegionalPlan struct {
	MealPlan             string   `json:"meal_plan"`
	CuisineRegion        string   `json:"cuisine_region"`
	MealType             string   `json:"meal_type"`
	DietaryRestrictions  []string `json:"dietary_restrictions"`
	TimeConstraint       int      `json:"time_constraint"`
	CookingSkill         string   `json:"cooking_skill"`
	AvailableIngredients []string `json:"available_ingredients"`
}

// RegionalRecipe is a generated regional recipe.
type RegionalRecipe struct {
	Recipe               string   `json:"recipe"`
	CuisineRegion        string   `json:"cuisine_region"`
	DishName             string   `json:"dish_name,omitempty"`
	DietaryRestrictions  []string `json:"dietary_restrictions"`
	TimeConstraint       int      `json:"time_constraint"`
	CookingSkill         string   `json:"cooking_skill"`
	AvailableIngredients []string `json:"available_ingredients"`
}

// AdaptedPlan is a free-text plan revised from feedback.
type AdaptedPlan struct {
	AdaptedPlan string         `json:"adapted_plan"`
	Feedback    string         `json:"feedback"`
	Changes     map[string]any `json:"changes,omitempty"`
}

// RegionalAgent is CulinaryExplorer.
type RegionalAgent struct {
	runner
}

// NewRegionalAgent creates the CulinaryExplorer agent.
func NewRegionalAgent(client llm.Client, logger *slog.Logger) *RegionalAgent {
	return &RegionalAgent{runner: newRunner(CulinaryExplorer, client, regionalDescription, regionalInstructions, logger)}
}

func optionalList(label string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return fmt.Sprintf("%s: %s.", label, strings.Join(values, ", "))
}

// GenerateMealPlan returns a healthy regional meal plan.
func (a *RegionalAgent) GenerateMealPlan(ctx context.Context, req RegionalPlanRequest) (*RegionalPlan, error) {
	req.MealType = orDefault(req.MealType, "full_day")
	req.TimeConstraint = orDefaultInt(req.TimeConstraint, 60)
	req.CookingSkill = orDefault(req.CookingSkill, "intermediate")

	prompt := lines(
		fmt.Sprintf("I'm interested in %s cuisine and want a %s meal plan.", req.CuisineRegion, req.MealType),
		optionalList("Dietary restrictions", req.DietaryRestrictions),
		optionalList("Available ingredients", req.AvailableIngredients),
		fmt.Sprintf("I have %d minutes for cooking and my skill level is %s.", req.TimeConstraint, req.CookingSkill),
		"\n"+fmt.Sprintf("Please create a healthy, authentic %s meal plan with traditional dishes", req.CuisineRegion),
		"that have been modified for better health while maintaining cultural authenticity.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("regional meal plan generation failed: %w", err)
	}
	return &RegionalPlan{
		MealPlan:             text,
		CuisineRegion:        req.CuisineRegion,
		MealType:             req.MealType,
		DietaryRestrictions:  nonNil(req.DietaryRestrictions),
		TimeConstraint:       req.TimeConstraint,
		CookingSkill:         req.CookingSkill,
		AvailableIngredients: nonNil(req.AvailableIngredients),
	}, nil
}

// GenerateRecipe returns a single regional recipe.
func (a *RegionalAgent) GenerateRecipe(ctx context.Context, req RegionalRecipeRequest) (*RegionalRecipe, error) {
	req.TimeConstraint = orDefaultInt(req.TimeConstraint, 60)
	req.CookingSkill = orDefault(req.CookingSkill, "intermediate")

	dish := ""
	if req.DishName != "" {
		dish = " for " + req.DishName
	}
	prompt := lines(
		fmt.Sprintf("I want a %s recipe%s.", req.CuisineRegion, dish),
		optionalList("Dietary restrictions", req.DietaryRestrictions),
		optionalList("Available ingredients", req.AvailableIngredients),
		fmt.Sprintf("I have %d minutes for cooking and my skill level is %s.", req.TimeConstraint, req.CookingSkill),
		"\n"+fmt.Sprintf("Please provide a healthy, authentic %s recipe with traditional flavors", req.CuisineRegion),
		"but modified for better health. Include cultural context and serving suggestions.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("regional recipe generation failed: %w", err)
	}
	return &RegionalRecipe{
		Recipe:               text,
		CuisineRegion:        req.CuisineRegion,
		DishName:             req.DishName,
		DietaryRestrictions:  nonNil(req.DietaryRestrictions),
		TimeConstraint:       req.TimeConstraint,
		CookingSkill:         req.CookingSkill,
		AvailableIngredients: nonNil(req.AvailableIngredients),
	}, nil
}

// AdaptPlan revises a regional plan from feedback.
func (a *RegionalAgent) AdaptPlan(ctx context.Context, req RegionalAdaptRequest) (*AdaptedPlan, error) {
	cuisine := ""
	if req.NewCuisinePreference != "" {
		cuisine = fmt.Sprintf("New cuisine preference: %s.", req.NewCuisinePreference)
	}
	prompt := lines(
		"Based on this feedback, please adapt the regional meal plan:",
		"\nCurrent Plan:",
		req.CurrentPlan,
		"\nUser Feedback:",
		req.Feedback,
		cuisine,
		optionalList("New dietary restrictions", req.NewDietaryRestrictions),
		"\nPlease provide an updated regional meal plan that addresses the feedback while maintaining",
		"cultural authenticity and health benefits.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("regional plan adaptation failed: %w", err)
	}
	changes := map[string]any{}
	if req.NewCuisinePreference != "" {
		changes["new_cuisine_preference"] = req.NewCuisinePreference
	}
	if len(req.NewDietaryRestrictions) > 0 {
		changes["new_dietary_restrictions"] = req.NewDietaryRestrictions
	}
	return &AdaptedPlan{AdaptedPlan: text, Feedback: req.Feedback, Changes: changes}, nil
}

// dishNames are checked in order so the more specific name wins.
var dishNames = []string{"masala dosa", "dosa", "curry", "biryani"}

// DishName returns the first known dish mentioned in query, or "".
func DishName(query string) string {
	q := strings.ToLower(query)
	for _, dish := range dishNames {
		if strings.Contains(q, dish) {
			return dish
		}
	}
	return ""
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
