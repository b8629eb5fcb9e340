package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"nutribot/internal/cache"
	"nutribot/internal/llm"

	"github.com/google/uuid"
)

const recipeDescription = `
You are ChefGenius, a passionate and knowledgeable culinary expert with expertise in global cuisine! 🍳

Your mission is to help users create delicious meals by providing detailed,
personalized recipes based on their available ingredients, dietary restrictions,
and time constraints. You combine deep culinary knowledge with nutritional wisdom
to suggest recipes that are both practical and enjoyable.`

const recipeInstructions = `
Approach each recipe recommendation with these steps:

1. Analysis Phase 📋
   - Understand available ingredients
   - Consider dietary restrictions (if any)
   - Note time constraints
   - Factor in cooking skill level
   - Check for kitchen equipment needs

Dietary Flexibility:
- If no dietary restrictions are specified, create the best recipe using available ingredients
- If meat/protein ingredients are available, feel free to use them for complete nutrition
- Only restrict to vegetarian/vegan if explicitly requested
- Balance nutrition and taste based on available ingredients

Presentation Style:
- Use clear markdown formatting
- Present ingredients in a structured list
- Number cooking steps clearly
- Add emoji indicators for:
  🌱 Vegetarian (only if explicitly requested)
  🌿 Vegan (only if explicitly requested)
  🌾 Gluten-free
  🥜 Contains nuts
  ⏱️ Quick recipes
  🥩 Non-vegetarian (if meat/protein is used)
- Include tips for scaling portions
- Note allergen warnings
- Highlight make-ahead steps
- Suggest side dish pairings`

// RecipeRequest asks ChefGenius for a recipe built from what the user has.
type RecipeRequest struct {
	Ingredients         []string `json:"ingredients" binding:"required,min=1"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	TimeConstraint      int      `json:"time_constraint"`
	MealType            string   `json:"meal_type"`
	// NoCache asks for a fresh recipe, bypassing the cache in both directions.
	NoCache bool `json:"-"`
}

// Recipe is ChefGenius's answer.
type Recipe struct {
	ID                  string   `json:"id"`
	Recipe              string   `json:"recipe"`
	IngredientsUsed     []string `json:"ingredients_used"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	TimeConstraint      int      `json:"time_constraint"`
	MealType            string   `json:"meal_type"`
	Cached              bool     `json:"cached"`
}

// RecipeAgent generates recipes from available ingredients. Identical requests are served
// from the cache until the entry expires.
type RecipeAgent struct {
	runner
	cache    cache.Store
	cacheTTL time.Duration
}

// NewRecipeAgent creates the ChefGenius agent. store may be nil to disable caching.
func NewRecipeAgent(client llm.Client, store cache.Store, ttl time.Duration, logger *slog.Logger) *RecipeAgent {
	return &RecipeAgent{
		runner:   newRunner(ChefGenius, client, recipeDescription, recipeInstructions, logger),
		cache:    store,
		cacheTTL: ttl,
	}
}

func dietaryGuidance(restrictions []string) string {
	switch {
	case len(restrictions) == 0:
		return "You can create either vegetarian or non-vegetarian recipes based on the available ingredients. If meat/protein ingredients are available, feel free to use them for a complete meal."
	case slices.Contains(restrictions, "vegetarian"):
		return "IMPORTANT: This must be a VEGETARIAN recipe. Do not include any meat, poultry, fish, or seafood. Use plant-based proteins like beans, lentils, tofu, or dairy if needed."
	case slices.Contains(restrictions, "vegan"):
		return "IMPORTANT: This must be a VEGAN recipe. Do not include any animal products including meat, dairy, eggs, or honey. Use plant-based alternatives."
	default:
		return "Dietary considerations: " + strings.Join(restrictions, ", ")
	}
}

// RecipePrompt renders the user prompt for req, applying defaults.
func RecipePrompt(req RecipeRequest) string {
	return lines(
		fmt.Sprintf("I have these ingredients: %s.", strings.Join(req.Ingredients, ", ")),
		dietaryGuidance(req.DietaryRestrictions),
		fmt.Sprintf("I need a healthy %s recipe that takes less than %d minutes.", req.MealType, req.TimeConstraint),
		"Please provide a detailed recipe with ingredients list, step-by-step instructions,",
		"cooking time, and nutritional information. Make sure the recipe is practical and delicious!",
	)
}

// Generate returns a recipe for req.
func (a *RecipeAgent) Generate(ctx context.Context, req RecipeRequest) (*Recipe, error) {
	req.TimeConstraint = orDefaultInt(req.TimeConstraint, 60)
	req.MealType = orDefault(req.MealType, "dinner")
	if req.DietaryRestrictions == nil {
		req.DietaryRestrictions = []string{}
	}

	key := recipeCacheKey(req)
	if !req.NoCache {
		if cached := a.fromCache(ctx, key); cached != nil {
			return cached, nil
		}
	}

	text, err := a.run(ctx, RecipePrompt(req), false)
	if err != nil {
		return nil, fmt.Errorf("recipe generation failed: %w", err)
	}

	recipe := &Recipe{
		ID:                  uuid.New().String(),
		Recipe:              text,
		IngredientsUsed:     req.Ingredients,
		DietaryRestrictions: req.DietaryRestrictions,
		TimeConstraint:      req.TimeConstraint,
		MealType:            req.MealType,
	}
	if !req.NoCache {
		a.toCache(ctx, key, recipe)
	}
	return recipe, nil
}

func (a *RecipeAgent) fromCache(ctx context.Context, key string) *Recipe {
	if a.cache == nil {
		return nil
	}
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			a.logger.Warn("Recipe cache read failed", "error", err)
		}
		return nil
	}
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		a.logger.Warn("Discarding unreadable cached recipe", "error", err)
		return nil
	}
	recipe.Cached = true
	a.logger.Debug("Recipe served from cache", "id", recipe.ID)
	return &recipe
}

func (a *RecipeAgent) toCache(ctx context.Context, key string, recipe *Recipe) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(recipe)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
		a.logger.Warn("Recipe cache write failed", "error", err)
	}
}

// recipeCacheKey is stable under reordering and case changes of ingredients and restrictions.
func recipeCacheKey(req RecipeRequest) string {
	normalize := func(values []string) []string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
				out = append(out, v)
			}
		}
		slices.Sort(out)
		return out
	}

	h := sha256.New()
	h.Write([]byte(strings.Join(normalize(req.Ingredients), ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(normalize(req.DietaryRestrictions), ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(req.TimeConstraint)))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.ToLower(req.MealType)))
	return "recipe:" + hex.EncodeToString(h.Sum(nil))
}
