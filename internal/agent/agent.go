// Package agent holds the prompt-template agents the chatbot routes to. Each agent formats a
// prompt from validated fields, sends it with its persona through an llm.Client and shapes
// the reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"nutribot/internal/cache"
	"nutribot/internal/db"
	"nutribot/internal/llm"
)

// Names the chatbot uses to address each agent.
const (
	ChefGenius          = "chefgenius"
	CulinaryExplorer    = "culinaryexplorer"
	BudgetChef          = "budgetchef"
	FitMentor           = "fitmentor"
	AdvancedMealPlanner = "advanced_meal_planner"
	NutrientAnalyzer    = "nutrient_analyzer"
)

// Set holds one instance of every agent.
type Set struct {
	Recipe   *RecipeAgent
	Regional *RegionalAgent
	Budget   *BudgetAgent
	Fitness  *FitnessAgent
	Planner  *MealPlanner
	Nutrient *NutrientAgent
}

// NewSet creates all agents over one client. recipes may be nil to disable recipe caching.
func NewSet(client llm.Client, recipes cache.Store, recipeTTL time.Duration, dbService db.Service, logger *slog.Logger) *Set {
	return &Set{
		Recipe:   NewRecipeAgent(client, recipes, recipeTTL, logger),
		Regional: NewRegionalAgent(client, logger),
		Budget:   NewBudgetAgent(client, logger),
		Fitness:  NewFitnessAgent(client, logger),
		Planner:  NewMealPlanner(client, logger),
		Nutrient: NewNutrientAgent(client, dbService, logger),
	}
}

// runner sends prompts for one agent persona.
type runner struct {
	client      llm.Client
	system      string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func newRunner(name string, client llm.Client, description, instructions string, logger *slog.Logger) runner {
	return runner{
		client:      client,
		system:      strings.TrimSpace(description) + "\n\n" + strings.TrimSpace(instructions),
		temperature: 0.7,
		logger:      logger.With("component", "agent", "agent", name),
	}
}

func (r runner) run(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	r.logger.Debug("Sending prompt", "prompt", prompt)
	text, err := r.client.Generate(ctx, llm.Request{
		System:      r.system,
		Prompt:      prompt,
		Temperature: llm.Temperature(r.temperature),
		MaxTokens:   r.maxTokens,
		JSON:        jsonMode,
	})
	if err != nil {
		r.logger.Error("Agent call failed", "error", err)
		return "", err
	}
	r.logger.Debug("Received response", "length", len(text))
	return text, nil
}

// lines joins the non-blank parts with newlines. A part starting with "\n" is preceded by an
// empty line.
func lines(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ageWeight renders the optional age and weight line shared by several prompts.
func ageWeight(age *int, weight *float64) string {
	switch {
	case age != nil && weight != nil:
		return fmt.Sprintf("Age: %d years, Weight: %s kg", *age, num(*weight))
	case age != nil:
		return fmt.Sprintf("Age: %d years", *age)
	case weight != nil:
		return fmt.Sprintf("Weight: %s kg", num(*weight))
	}
	return ""
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func orDefaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
