package chatbot

import (
	"strings"

	"nutribot/internal/agent"
)

var dosaKeywords = []string{"dosa", "masala", "south indian", "kerala", "tamil"}

const (
	fitnessFallback = "For muscle gain workouts, focus on:\n• Compound exercises (squats, deadlifts, bench press)\n• Progressive overload\n• 6-12 reps per set\n• 3-4 sets per exercise\n• 48-72 hours rest between muscle groups\n\n**Sample Workout:**\n- Push-ups: 3 sets of 12 reps\n- Squats: 3 sets of 15 reps\n- Planks: 3 sets of 60 seconds\n- Lunges: 3 sets of 12 reps per leg"

	dosaFallback = "**Traditional Masala Dosa Recipe 🥞**\n\n**For Dosa Batter:**\n- 2 cups rice (preferably parboiled rice)\n- 1/2 cup urad dal (black gram dal)\n- 1/4 tsp fenugreek seeds\n- Salt to taste\n\n**For Masala Filling:**\n- 3-4 medium potatoes, boiled and mashed\n- 1 large onion, finely chopped\n- 2-3 green chilies, chopped\n- 1 tsp mustard seeds\n- 1 tsp turmeric powder\n- 2 tbsp oil\n- Curry leaves\n- Salt to taste\n\n**Instructions:**\n1. **Prepare Batter:** Soak rice and dal separately for 4-6 hours. Grind to smooth paste. Ferment overnight.\n2. **Make Masala:** Heat oil, add mustard seeds, curry leaves. Add onions, chilies. Add mashed potatoes, turmeric, salt. Mix well.\n3. **Cook Dosa:** Heat tawa, pour batter, spread thin. Cook until golden, flip, add masala, fold.\n\n**Serving:** Serve hot with coconut chutney and sambar."

	recipeFallback = "For recipe suggestions, consider:\n• Using fresh, seasonal ingredients\n• Balancing macronutrients\n• Proper cooking techniques\n• Dietary restrictions and preferences\n\n**Sample Recipe:**\n- Kerala Chicken Curry: Marinate chicken with turmeric, chili powder, and salt. Cook with onions, tomatoes, and coconut milk. Serve with rice."

	nutrientFallback = "For nutrition analysis, I can help you understand:\n• Macronutrient breakdown (protein, carbs, fats)\n• Micronutrient content\n• Calorie density\n• Health benefits and considerations\n\n**Sample Analysis:**\n- Chicken Curry (100g): ~150 calories, 20g protein, 8g carbs, 6g fat"

	regionalFallback = "For regional cuisine, consider:\n• Traditional cooking methods\n• Local spices and ingredients\n• Cultural significance\n• Health adaptations\n\n**Sample Kerala Dishes:**\n- Fish Curry with coconut milk\n- Appam with vegetable stew\n- Kerala beef fry"

	budgetFallback = "For budget meal planning:\n• Use seasonal, local ingredients\n• Plan meals around staple foods\n• Buy in bulk when possible\n• Cook in batches\n\n**Sample Budget Meal:**\n- Dal (lentils) with rice: ~₹30 per serving\n- Vegetable curry with roti: ~₹25 per serving"

	plannerFallback = "For meal planning:\n• Calculate your daily calorie needs\n• Plan 3 main meals + 2 snacks\n• Include all food groups\n• Prep ingredients in advance\n\n**Sample 2000-calorie day:**\n- Breakfast: Oatmeal with fruits (400 cal)\n- Lunch: Rice with dal and vegetables (600 cal)\n- Dinner: Roti with chicken curry (500 cal)\n- Snacks: Nuts and fruits (500 cal)"

	genericFallback = "Please try again in a few minutes when our AI service is available."
)

// FallbackResponse is the static reply used when no API key can serve agentName.
func FallbackResponse(agentName, query string) string {
	intro := "I understand you want help with " + strings.ReplaceAll(agentName, "_", " ") +
		". However, our AI service is currently experiencing high usage. Here's what I can tell you:\n\n"

	var body string
	switch agentName {
	case agent.FitMentor:
		body = fitnessFallback
	case agent.ChefGenius:
		body = recipeFallback
		if containsAny(strings.ToLower(query), dosaKeywords) {
			body = dosaFallback
		}
	case agent.NutrientAnalyzer:
		body = nutrientFallback
	case agent.CulinaryExplorer:
		body = regionalFallback
	case agent.BudgetChef:
		body = budgetFallback
	case agent.AdvancedMealPlanner:
		body = plannerFallback
	default:
		body = genericFallback
	}
	return intro + body
}
