package chatbot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"nutribot/internal/agent"
)

// Slots are values pulled from the conversation. Zero values mean "not mentioned".
type Slots struct {
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	MealType            string   `json:"meal_type,omitempty"`
	Minutes             int      `json:"minutes,omitempty"`
	Calories            int      `json:"calories,omitempty"`
	BudgetPerDay        float64  `json:"budget_per_day,omitempty"`
	FitnessGoal         string   `json:"fitness_goal,omitempty"`
	Equipment           string   `json:"equipment,omitempty"`
	CuisineRegion       string   `json:"cuisine_region,omitempty"`
	Ingredients         []string `json:"ingredients,omitempty"`
	FoodName            string   `json:"food_name,omitempty"`
	ServingSize         string   `json:"serving_size,omitempty"`
	MealsPerDay         int      `json:"meals_per_day,omitempty"`
	SkillLevel          string   `json:"skill_level,omitempty"`
	ActivityLevel       string   `json:"activity_level,omitempty"`
}

var (
	timeRe     = regexp.MustCompile(`(\d+)\s*(minutes?|min|hours?|hr)`)
	calorieRe  = regexp.MustCompile(`(\d+)\s*calories?`)
	budgetRe   = regexp.MustCompile(`(\d+)\s*(rupees?|rs|₹)`)
	servingRe  = regexp.MustCompile(`(\d+(?:\.\d+)?\s*(?:g|grams?|ml|cups?|pieces?|servings?|slices?|bowls?|tbsp|tsp))\b`)
	foodNameRe = []*regexp.Regexp{
		regexp.MustCompile(`(?:calories|nutrition|nutrients|protein|macros)\s+(?:in|of|for)\s+(?:an?\s+|the\s+|one\s+)?([a-z][a-z ]{1,40}?)\s*[?.!]*$`),
		regexp.MustCompile(`analy[sz]e\s+(?:an?\s+|the\s+)?([a-z][a-z ]{1,40}?)\s*[?.!]*$`),
	}

	ingredientWords = []string{
		"chicken", "rice", "vegetables", "onion", "tomato", "potato", "carrot", "beans", "lentils", "dal",
		"curry", "soup", "salad", "pasta", "bread",
	}
)

// keywordSlot is one "first matching group wins" rule.
type keywordSlot struct {
	value string
	words []string
}

var (
	dietRules = []keywordSlot{
		{"vegetarian", []string{"vegetarian", "vegan", "no meat"}},
		{"gluten-free", []string{"gluten-free", "gluten free"}},
		{"dairy-free", []string{"dairy-free", "dairy free"}},
	}
	mealRules = []keywordSlot{
		{"breakfast", []string{"breakfast", "morning"}},
		{"lunch", []string{"lunch", "afternoon"}},
		{"dinner", []string{"dinner", "evening", "night"}},
		{"snack", []string{"snack"}},
	}
	goalRules = []keywordSlot{
		{"muscle_gain", []string{"muscle gain", "muscle_gain", "build muscle"}},
		{"weight_loss", []string{"weight loss", "weight_loss", "lose weight"}},
		{"general_fitness", []string{"general fitness", "general_fitness"}},
	}
	equipmentRules = []keywordSlot{
		{"gym", []string{"gym", "dumbbell", "barbell", "weights"}},
		{"bodyweight", []string{"bodyweight", "body weight", "no equipment"}},
		{"home_equipment", []string{"home", "home equipment"}},
	}
	cuisineRules = []keywordSlot{
		{"kerala", []string{"kerala", "keralite"}},
		{"punjab", []string{"punjab", "punjabi"}},
		{"mediterranean", []string{"mediterranean"}},
		{"japanese", []string{"japanese"}},
	}
)

func firstMatch(text string, rules []keywordSlot) string {
	for _, r := range rules {
		if containsAny(text, r.words) {
			return r.value
		}
	}
	return ""
}

// maxMinutes is the longest time constraint taken from a query; anything beyond is ignored.
const maxMinutes = 24 * 60

// ExtractContext pulls slot values from the query and the given history.
func ExtractContext(query string, history []Turn) Slots {
	parts := []string{query}
	for _, t := range history {
		parts = append(parts, t.UserText+" "+t.AgentText)
	}
	text := strings.ToLower(strings.Join(parts, " "))

	var s Slots
	if diet := firstMatch(text, dietRules); diet != "" {
		s.DietaryRestrictions = []string{diet}
	}
	s.MealType = firstMatch(text, mealRules)
	s.FitnessGoal = firstMatch(text, goalRules)
	s.Equipment = firstMatch(text, equipmentRules)
	s.CuisineRegion = firstMatch(text, cuisineRules)

	if m := timeRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			unit := 1
			if strings.HasPrefix(m[2], "h") {
				unit = 60
			}
			if v <= maxMinutes/unit {
				s.Minutes = v * unit
			}
		}
	}
	if m := calorieRe.FindStringSubmatch(text); m != nil {
		s.Calories, _ = strconv.Atoi(m[1])
	}
	if m := budgetRe.FindStringSubmatch(text); m != nil {
		s.BudgetPerDay, _ = strconv.ParseFloat(m[1], 64)
	}

	for _, w := range ingredientWords {
		if strings.Contains(text, w) {
			s.Ingredients = append(s.Ingredients, w)
		}
	}

	// Food names and portions only come from the current query.
	q := strings.ToLower(strings.TrimSpace(query))
	for _, re := range foodNameRe {
		if m := re.FindStringSubmatch(q); m != nil {
			s.FoodName = strings.TrimSpace(m[1])
			break
		}
	}
	if m := servingRe.FindStringSubmatch(q); m != nil {
		s.ServingSize = strings.ReplaceAll(m[1], " ", "")
	}
	return s
}

// field describes one agent input: how to tell it is known and, if possible, how to default it.
type field struct {
	name      string
	known     func(s Slots, u UserContext) bool
	fillWith  func(s *Slots, u UserContext)
	essential bool
}

func profileDiet(s *Slots, u UserContext) { s.DietaryRestrictions = u.DietaryPreferences }

var (
	fIngredients = field{name: "ingredients", essential: true,
		known: func(s Slots, _ UserContext) bool { return len(s.Ingredients) > 0 }}
	fCuisineRegion = field{name: "cuisine_region", essential: true,
		known: func(s Slots, u UserContext) bool { return s.CuisineRegion != "" }}
	fFoodName = field{name: "food_name", essential: true,
		known: func(s Slots, _ UserContext) bool { return s.FoodName != "" }}
	fServingSize = field{name: "serving_size",
		known:    func(s Slots, _ UserContext) bool { return s.ServingSize != "" },
		fillWith: func(s *Slots, _ UserContext) { s.ServingSize = "100g" }}
	fDietaryRestrictions = field{name: "dietary_restrictions",
		known:    func(s Slots, _ UserContext) bool { return len(s.DietaryRestrictions) > 0 },
		fillWith: profileDiet}
	fDietaryPreferences = field{name: "dietary_preferences",
		known:    func(s Slots, u UserContext) bool { return len(s.DietaryRestrictions) > 0 || len(u.DietaryPreferences) > 0 },
		fillWith: profileDiet}
	fFoodPreferences = field{name: "food_preferences",
		known: func(Slots, UserContext) bool { return false }}
	fMealType = field{name: "meal_type",
		known: func(s Slots, _ UserContext) bool { return s.MealType != "" }}
	fTimeConstraint = field{name: "time_constraint",
		known:    func(s Slots, _ UserContext) bool { return s.Minutes > 0 },
		fillWith: func(s *Slots, _ UserContext) { s.Minutes = 30 }}
	fTimePerDay = field{name: "time_per_day",
		known:    func(s Slots, _ UserContext) bool { return s.Minutes > 0 },
		fillWith: func(s *Slots, _ UserContext) { s.Minutes = 60 }}
	fCookingSkill = field{name: "cooking_skill",
		known:    func(s Slots, _ UserContext) bool { return s.SkillLevel != "" },
		fillWith: func(s *Slots, _ UserContext) { s.SkillLevel = "intermediate" }}
	fSkillLevel = field{name: "skill_level",
		known:    fCookingSkill.known,
		fillWith: fCookingSkill.fillWith}
	fCookingTime = field{name: "cooking_time",
		known: func(Slots, UserContext) bool { return false }}
	fBudgetPerDay = field{name: "budget_per_day",
		known: func(s Slots, _ UserContext) bool { return s.BudgetPerDay > 0 }}
	fCalorieTarget = field{name: "calorie_target",
		known:    func(s Slots, _ UserContext) bool { return s.Calories > 0 },
		fillWith: func(s *Slots, _ UserContext) { s.Calories = 2000 }}
	fTargetCalories = field{name: "target_calories",
		known:    fCalorieTarget.known,
		fillWith: fCalorieTarget.fillWith}
	fMealsPerDay = field{name: "meals_per_day",
		known:    func(s Slots, _ UserContext) bool { return s.MealsPerDay > 0 },
		fillWith: func(s *Slots, _ UserContext) { s.MealsPerDay = 3 }}
	fActivityLevel = field{name: "activity_level",
		known: func(s Slots, u UserContext) bool { return s.ActivityLevel != "" || u.ActivityLevel != "" },
		fillWith: func(s *Slots, u UserContext) {
			s.ActivityLevel = u.ActivityLevel
			if s.ActivityLevel == "" {
				s.ActivityLevel = "moderately_active"
			}
		}}
	fFitnessGoal = field{name: "fitness_goal",
		known:    func(s Slots, _ UserContext) bool { return s.FitnessGoal != "" },
		fillWith: func(s *Slots, _ UserContext) { s.FitnessGoal = "general_fitness" }}
	fEquipment = field{name: "equipment",
		known:    func(s Slots, _ UserContext) bool { return s.Equipment != "" },
		fillWith: func(s *Slots, _ UserContext) { s.Equipment = "bodyweight" }}
)

// requiredFields lists, per agent, the inputs the router tries to resolve before dispatching.
var requiredFields = map[string][]field{
	agent.ChefGenius:          {fIngredients, fDietaryRestrictions, fTimeConstraint, fMealType},
	agent.CulinaryExplorer:    {fCuisineRegion, fMealType, fDietaryRestrictions, fTimeConstraint, fCookingSkill},
	agent.BudgetChef:          {fBudgetPerDay, fCalorieTarget, fDietaryPreferences, fMealsPerDay, fCookingTime, fSkillLevel},
	agent.FitMentor:           {fActivityLevel, fFitnessGoal, fTimePerDay, fEquipment},
	agent.AdvancedMealPlanner: {fTargetCalories, fMealsPerDay, fFoodPreferences, fDietaryRestrictions},
	agent.NutrientAnalyzer:    {fFoodName, fServingSize},
}

var clarificationPrompts = map[string]string{
	"food_name":      "What food would you like to analyze?",
	"ingredients":    "What ingredients do you have available?",
	"cuisine_region": "Which cuisine/region? (e.g., Kerala, Punjab, Mediterranean)",
}

// maxClarifications is the most essential fields the router will ask about at once; with
// more missing it dispatches with what it has.
const maxClarifications = 2

// FieldCheck is the outcome of CheckMissingFields.
type FieldCheck struct {
	Missing bool
	Fields  []string
	Message string
	Slots   Slots
}

// CheckMissingFields resolves the agent's inputs from the conversation, the user's profile and
// defaults. Only essential fields that cannot be defaulted produce a clarification message.
func CheckMissingFields(agentName, query string, user UserContext, history []Turn) FieldCheck {
	slots := ExtractContext(query, history)
	q := strings.ToLower(query)

	var missing []string
	for _, f := range requiredFields[agentName] {
		if f.known(slots, user) {
			continue
		}
		if strings.Contains(q, strings.ReplaceAll(f.name, "_", " ")) || strings.Contains(q, f.name) {
			continue
		}
		if f.fillWith != nil {
			f.fillWith(&slots, user)
			continue
		}
		if f.essential {
			missing = append(missing, f.name)
		}
	}

	if len(missing) == 0 || len(missing) > maxClarifications {
		return FieldCheck{Slots: slots}
	}

	var b strings.Builder
	b.WriteString("I need just a bit more info:\n\n")
	for _, name := range missing {
		fmt.Fprintf(&b, "• %s\n", clarificationPrompts[name])
	}
	return FieldCheck{Missing: true, Fields: missing, Message: b.String(), Slots: slots}
}
