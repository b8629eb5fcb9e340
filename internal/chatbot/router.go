package chatbot

import (
	"strings"
	"unicode"

	"nutribot/internal/agent"
)

// DefaultAgent handles queries nothing else claims.
const DefaultAgent = agent.ChefGenius

type intent struct {
	agent    string
	keywords []string
}

// intents is scored in order; on a tied score the earlier agent wins.
var intents = []intent{
	{agent.ChefGenius, []string{"ingredients", "cooking", "food"}},
	{agent.CulinaryExplorer, []string{
		"recipe", "cook", "dish", "meal", "regional", "cuisine", "kerala", "punjab", "gujarat", "tamil",
		"rajasthan", "mediterranean", "japanese", "mexican", "italian", "chinese", "thai", "dosa", "masala",
		"indian", "south indian", "north indian", "curry", "biryani", "dal", "roti", "naan", "samosa", "vada",
		"idli", "sambar", "chutney", "how to make", "how to cook",
	}},
	{agent.BudgetChef, []string{"budget", "cheap", "cost", "money", "affordable", "economical", "price", "rupees", "inexpensive"}},
	{agent.FitMentor, []string{"workout", "exercise", "fitness", "gym", "training", "muscle", "weight", "cardio", "burn", "lose", "kg", "pounds", "active"}},
	{agent.AdvancedMealPlanner, []string{"meal plan", "weekly plan", "7-day", "diet plan", "nutrition plan", "meal planning"}},
	{agent.NutrientAnalyzer, []string{"nutrition", "calories", "protein", "carbs", "fat", "analyze", "nutrient", "macro"}},
}

var (
	fitnessContextWords = []string{"workout", "exercise", "fitness", "gym", "training", "muscle", "weight", "cardio"}
	fitnessFollowUps    = []string{"active", "activity", "level", "intensity", "workout", "exercise"}
	recipeContextWords  = []string{"recipe", "cook", "ingredients", "cooking", "dish", "meal", "food"}
	recipeFollowUps     = []string{"more", "another", "different", "ingredient", "cook", "recipe"}

	continuationMarkers = map[string]bool{
		"more": true, "another": true, "different": true, "also": true, "and": true, "then": true,
		"it": true, "that": true, "this": true, "again": true, "instead": true,
	}
)

// contextWindow is how many recent turns the override rules look at.
const contextWindow = 3

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Scores counts, per agent, how many of its keywords occur in the query.
func Scores(query string) map[string]int {
	q := strings.ToLower(query)
	scores := make(map[string]int, len(intents))
	for _, in := range intents {
		for _, kw := range in.keywords {
			if strings.Contains(q, kw) {
				scores[in.agent]++
			}
		}
	}
	return scores
}

// DetectAgent picks the agent for query given the user's recent history (oldest first).
func DetectAgent(query string, history []Turn) string {
	q := strings.ToLower(query)

	if len(history) > 0 {
		recent := history
		if len(recent) > contextWindow {
			recent = recent[len(recent)-contextWindow:]
		}
		parts := make([]string, 0, len(recent))
		for _, t := range recent {
			parts = append(parts, t.UserText+" "+t.AgentText)
		}
		context := strings.ToLower(strings.Join(parts, " "))

		if containsAny(context, fitnessContextWords) && containsAny(q, fitnessFollowUps) {
			return agent.FitMentor
		}
		if containsAny(context, recipeContextWords) && containsAny(q, recipeFollowUps) {
			return agent.ChefGenius
		}
	}

	scores := Scores(query)
	best, bestScore := "", 0
	for _, in := range intents {
		if s := scores[in.agent]; s > bestScore {
			best, bestScore = in.agent, s
		}
	}
	if bestScore > 0 {
		return best
	}

	if len(history) > 0 && hasContinuationMarker(q) {
		return previousAgent(history[len(history)-1])
	}
	return DefaultAgent
}

func hasContinuationMarker(q string) bool {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		if continuationMarkers[w] {
			return true
		}
	}
	return false
}

// previousAgent prefers the agent recorded on the turn and otherwise guesses from its reply.
func previousAgent(last Turn) string {
	if last.Agent != "" {
		return last.Agent
	}
	reply := strings.ToLower(last.AgentText)
	switch {
	case strings.Contains(reply, "workout"), strings.Contains(reply, "exercise"):
		return agent.FitMentor
	case strings.Contains(reply, "recipe"), strings.Contains(reply, "cook"):
		return agent.ChefGenius
	}
	return DefaultAgent
}
