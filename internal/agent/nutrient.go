package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nutribot/internal/db"
	"nutribot/internal/llm"
	"nutribot/internal/model"
)

const nutrientDescription = `
You are NutrientAnalyzer, a health-focused nutrition expert. 🥦📊

Your mission: Given a food name and portion size, return its complete
nutritional breakdown (calories, macronutrients, micronutrients).
You infer nutritional info from known sources and approximate when needed.`

const nutrientInstructions = `
For each user query follow these steps:

1. Input Parsing 📝
   - Identify the food name (e.g., "Chicken Breast")
   - Identify the quantity/serving (e.g., "2 servings" or "150 g")

2. Data Lookup 🔎
   - Use internal knowledge for nutrient info
   - If the food is common, use typical USDA-style values
   - Scale nutrients to the specified serving size

3. Output Structuring 📑
   - Present results clearly in Markdown
   - Include:
     • Calories (kcal)
     • Macronutrients (protein, carbs, fat, fiber)
     • Micronutrients (vitamins, minerals) if available
     • Health tags (🌱 vegetarian, 🍗 meat, 🐟 fish, 🌾 gluten-free)

4. Portion Scaling ⚖️
   - Adjust all values to the portion given by user

5. Output Format 📝
   - JSON-like structure or table for easy parsing by your backend
   - Include "food_name", "serving_size" and "nutrients" keys

6. Feedback 🔄
   - If the food is not found, politely ask for clarification or offer closest match`

// Meal types accepted when logging.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// aiAnalyzedCuisine marks food items created from an analysis.
const aiAnalyzedCuisine = "ai_analyzed"

// AnalyzeRequest names a food and portion.
type AnalyzeRequest struct {
	FoodName    string `json:"food_name" binding:"required"`
	ServingSize string `json:"serving_size" binding:"required"`
}

// LogMealRequest analyzes a food and records it as a meal.
type LogMealRequest struct {
	FoodName    string `json:"food_name" binding:"required"`
	ServingSize string `json:"serving_size" binding:"required"`
	MealType    string `json:"meal_type" binding:"omitempty,oneof=breakfast lunch dinner snack"`
}

// Nutrients is the structured breakdown recovered from an analysis. Mass values are grams
// except Sodium and Cholesterol, which are milligrams.
type Nutrients struct {
	Calories      float64        `json:"calories"`
	Protein       float64        `json:"protein"`
	Carbohydrates float64        `json:"carbohydrates"`
	Fat           float64        `json:"fat"`
	Fiber         float64        `json:"fiber"`
	Sugar         float64        `json:"sugar"`
	Sodium        float64        `json:"sodium"`
	Cholesterol   float64        `json:"cholesterol"`
	Vitamins      map[string]any `json:"vitamins"`
	Minerals      map[string]any `json:"minerals"`
	HealthTags    []string       `json:"health_tags"`
}

func newNutrients() Nutrients {
	return Nutrients{Vitamins: map[string]any{}, Minerals: map[string]any{}, HealthTags: []string{}}
}

// Analysis is the agent's text plus what could be parsed from it.
type Analysis struct {
	FoodName        string    `json:"food_name"`
	ServingSize     string    `json:"serving_size"`
	RawAnalysis     string    `json:"raw_analysis"`
	ParsedNutrients Nutrients `json:"parsed_nutrients"`
}

// LoggedMeal describes a meal log written from an analysis.
type LoggedMeal struct {
	ID          uint      `json:"id"`
	FoodName    string    `json:"food_name"`
	ServingSize string    `json:"serving_size"`
	MealType    string    `json:"meal_type"`
	Calories    float64   `json:"calories"`
	Protein     float64   `json:"protein"`
	Carbs       float64   `json:"carbs"`
	Fat         float64   `json:"fat"`
	Fiber       float64   `json:"fiber"`
	Sugar       float64   `json:"sugar"`
	Sodium      float64   `json:"sodium"`
	Cholesterol float64   `json:"cholesterol"`
	HealthTags  []string  `json:"health_tags"`
	LoggedAt    time.Time `json:"logged_at"`
	FoodItemID  uint      `json:"food_item_id"`
}

// NutrientAgent is NutrientAnalyzer.
type NutrientAgent struct {
	runner
	db  db.Service
	now func() time.Time
}

// NewNutrientAgent creates the NutrientAnalyzer agent. dbService is only needed by LogMeal.
func NewNutrientAgent(client llm.Client, dbService db.Service, logger *slog.Logger) *NutrientAgent {
	return &NutrientAgent{
		runner: newRunner(NutrientAnalyzer, client, nutrientDescription, nutrientInstructions, logger),
		db:     dbService,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Analyze returns the nutritional breakdown for a food and serving size.
func (a *NutrientAgent) Analyze(ctx context.Context, req AnalyzeRequest) (*Analysis, error) {
	prompt := lines(
		"Analyze the nutritional content for:",
		"Food: "+req.FoodName,
		"Serving Size: "+req.ServingSize,
		"\nPlease provide a complete nutritional breakdown including calories, macronutrients, and key micronutrients.",
		"Format the response as a structured analysis that can be easily parsed.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("nutrition analysis failed: %w", err)
	}
	return &Analysis{
		FoodName:        req.FoodName,
		ServingSize:     req.ServingSize,
		RawAnalysis:     text,
		ParsedNutrients: ParseNutrients(text),
	}, nil
}

// LogMeal analyzes the food, reuses or creates a matching FoodItem and records a MealLog for
// userID.
func (a *NutrientAgent) LogMeal(ctx context.Context, userID uint, req LogMealRequest) (*LoggedMeal, error) {
	if a.db == nil {
		return nil, errors.New("meal logging requires a database")
	}
	req.MealType = orDefault(req.MealType, MealLunch)

	analysis, err := a.Analyze(ctx, AnalyzeRequest{FoodName: req.FoodName, ServingSize: req.ServingSize})
	if err != nil {
		return nil, err
	}
	n := analysis.ParsedNutrients

	item, err := a.db.FindFoodItemByNameAndCalories(req.FoodName, n.Calories)
	switch {
	case errors.Is(err, db.ErrNotFound):
		item = &model.FoodItem{
			Name:        req.FoodName,
			CuisineType: aiAnalyzedCuisine,
			Calories:    n.Calories,
			ProteinG:    n.Protein,
			CarbsG:      n.Carbohydrates,
			FatG:        n.Fat,
			FiberG:      n.Fiber,
			SugarG:      n.Sugar,
			SodiumMg:    n.Sodium,
			Tags:        strings.Join(n.HealthTags, ","),
		}
		if err := a.db.CreateFoodItem(item); err != nil {
			return nil, fmt.Errorf("failed to create food item: %w", err)
		}
		a.logger.Info("Created food item from analysis", "food_item_id", item.ID, "name", item.Name)
	case err != nil:
		return nil, fmt.Errorf("failed to look up food item: %w", err)
	default:
		a.logger.Info("Reusing food item", "food_item_id", item.ID, "name", item.Name)
	}

	entry := &model.MealLog{
		UserID:     userID,
		FoodItemID: item.ID,
		MealType:   req.MealType,
		Quantity:   1,
		Calories:   n.Calories,
		Protein:    n.Protein,
		Carbs:      n.Carbohydrates,
		Fat:        n.Fat,
		LoggedAt:   a.now(),
	}
	if err := a.db.CreateMealLog(entry); err != nil {
		return nil, fmt.Errorf("failed to log meal: %w", err)
	}
	a.logger.Info("Logged analyzed meal", "user_id", userID, "meal_log_id", entry.ID)

	return &LoggedMeal{
		ID:          entry.ID,
		FoodName:    req.FoodName,
		ServingSize: req.ServingSize,
		MealType:    entry.MealType,
		Calories:    entry.Calories,
		Protein:     entry.Protein,
		Carbs:       entry.Carbs,
		Fat:         entry.Fat,
		Fiber:       n.Fiber,
		Sugar:       n.Sugar,
		Sodium:      n.Sodium,
		Cholesterol: n.Cholesterol,
		HealthTags:  n.HealthTags,
		LoggedAt:    entry.LoggedAt,
		FoodItemID:  item.ID,
	}, nil
}

var (
	jsonBlockRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	tableRowRe  = regexp.MustCompile(`\|[^|]*\|[^|]*\|[^|]*\|`)
	numberRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

	caloriePatterns = compileAll(
		`calories?[:\s]*(\d+(?:\.\d+)?)`,
		`(\d+(?:\.\d+)?)\s*kcal`,
		`(\d+(?:\.\d+)?)\s*calories?`,
	)
	proteinPatterns = compileAll(
		`protein[:\s]*(\d+(?:\.\d+)?)\s*g`,
		`(\d+(?:\.\d+)?)\s*g\s*protein`,
		`protein[:\s]*(\d+(?:\.\d+)?)`,
	)
	carbPatterns = compileAll(
		`carbohydrates?[:\s]*(\d+(?:\.\d+)?)\s*g`,
		`(\d+(?:\.\d+)?)\s*g\s*carbohydrates?`,
		`carbs?[:\s]*(\d+(?:\.\d+)?)\s*g`,
		`(\d+(?:\.\d+)?)\s*g\s*carbs?`,
	)
	fatPatterns = compileAll(
		`fat[:\s]*(\d+(?:\.\d+)?)\s*g`,
		`(\d+(?:\.\d+)?)\s*g\s*fat`,
		`total\s*fat[:\s]*(\d+(?:\.\d+)?)\s*g`,
	)
	fiberPatterns       = compileAll(`fiber[:\s]*(\d+(?:\.\d+)?)\s*g`)
	sugarPatterns       = compileAll(`sugar[:\s]*(\d+(?:\.\d+)?)\s*g`)
	sodiumPatterns      = compileAll(`sodium[:\s]*(\d+(?:\.\d+)?)\s*mg`)
	cholesterolPatterns = compileAll(`cholesterol[:\s]*(\d+(?:\.\d+)?)\s*mg`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

// ParseNutrients recovers structured values from an analysis. A fenced json block with a
// "nutrients" object wins outright; otherwise markdown table rows are read first and regex
// patterns fill whatever is still zero. Health tags come from keywords in the text.
func ParseNutrients(text string) Nutrients {
	if n, ok := nutrientsFromJSONBlock(text); ok {
		return n
	}

	n := newNutrients()
	nutrientsFromTable(text, &n)

	fill := func(field *float64, patterns []*regexp.Regexp) {
		if *field != 0 {
			return
		}
		for _, re := range patterns {
			if m := re.FindStringSubmatch(text); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					*field = v
					return
				}
			}
		}
	}
	fill(&n.Calories, caloriePatterns)
	fill(&n.Protein, proteinPatterns)
	fill(&n.Carbohydrates, carbPatterns)
	fill(&n.Fat, fatPatterns)
	fill(&n.Fiber, fiberPatterns)
	fill(&n.Sugar, sugarPatterns)
	fill(&n.Sodium, sodiumPatterns)
	fill(&n.Cholesterol, cholesterolPatterns)

	n.HealthTags = healthTags(text)
	return n
}

func nutrientsFromJSONBlock(text string) (Nutrients, bool) {
	m := jsonBlockRe.FindStringSubmatch(text)
	if m == nil {
		return Nutrients{}, false
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(m[1]), &doc); err != nil {
		return Nutrients{}, false
	}
	data, ok := doc["nutrients"].(map[string]any)
	if !ok {
		return Nutrients{}, false
	}

	n := newNutrients()
	ok = true
	read := func(src map[string]any, key string) float64 {
		v, fine := toFloat(src[key])
		if !fine {
			ok = false
		}
		return v
	}

	n.Calories = read(data, "calories")
	macros := data
	if nested, isMap := data["macronutrients"].(map[string]any); isMap {
		macros = nested
	}
	n.Protein = read(macros, "protein")
	n.Carbohydrates = read(macros, "carbohydrates")
	n.Fat = read(macros, "fat")
	n.Fiber = read(macros, "fiber")
	n.Sugar = read(data, "sugar")
	n.Sodium = read(data, "sodium")
	n.Cholesterol = read(data, "cholesterol")
	if !ok {
		return Nutrients{}, false
	}

	if tags, isList := doc["health_tags"].([]any); isList {
		for _, t := range tags {
			if s, isString := t.(string); isString {
				n.HealthTags = append(n.HealthTags, s)
			}
		}
	}
	return n, true
}

// toFloat accepts JSON numbers and numeric strings. A missing value reads as zero.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func nutrientsFromTable(text string, n *Nutrients) {
	for _, row := range tableRowRe.FindAllString(text, -1) {
		lower := strings.ToLower(row)
		if strings.Contains(lower, "nutrient") || strings.Contains(lower, "value") || strings.Contains(lower, "unit") {
			continue
		}
		var cells []string
		for _, c := range strings.Split(row, "|") {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) < 2 {
			continue
		}
		m := numberRe.FindString(cells[1])
		if m == "" {
			continue
		}
		value, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}

		name := strings.ToLower(cells[0])
		switch {
		case strings.Contains(name, "calorie"):
			n.Calories = value
		case strings.Contains(name, "protein"):
			n.Protein = value
		case strings.Contains(name, "carb"):
			n.Carbohydrates = value
		case strings.Contains(name, "fat") && strings.Contains(name, "total"):
			n.Fat = value
		case strings.Contains(name, "fiber"):
			n.Fiber = value
		case strings.Contains(name, "sugar"):
			n.Sugar = value
		case strings.Contains(name, "sodium"):
			n.Sodium = value
		case strings.Contains(name, "cholesterol"):
			n.Cholesterol = value
		}
	}
}

var tagKeywords = []struct {
	tag   string
	words []string
}{
	{"vegetarian", []string{"vegetarian", "vegan", "plant-based", "plant based"}},
	{"vegan", []string{"vegan"}},
	{"meat", []string{"chicken", "beef", "pork", "lamb", "meat", "poultry"}},
	{"fish", []string{"fish", "salmon", "tuna", "seafood", "cod", "mackerel"}},
	{"gluten-free", []string{"gluten-free", "gluten free", "glutenfree"}},
	{"dairy-free", []string{"dairy-free", "dairy free", "lactose-free", "lactose free"}},
	{"nut-free", []string{"nut-free", "nut free", "peanut-free", "peanut free"}},
}

func healthTags(text string) []string {
	lower := strings.ToLower(text)
	tags := []string{}
	for _, k := range tagKeywords {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				tags = append(tags, k.tag)
				break
			}
		}
	}
	return tags
}
