package agent

import (
	"context"
	"fmt"
	"log/slog"

	"nutribot/internal/llm"
)

const fitnessDescription = `
You are FitMentor, a knowledgeable and motivating personal fitness coach. 🏋️‍♂️

Your mission: create personalized weekly workout plans based on a user's
activity level, fitness goal, age, weight, available time, and any constraints.
You adapt plans weekly based on user feedback and progress.`

const fitnessInstructions = `
Approach each plan creation with these steps:

1. Input Analysis 📝
   - Activity level (beginner/intermediate/advanced)
   - Primary goal (weight loss, muscle gain, endurance, flexibility)
   - Time available per day
   - Equipment availability (none/home/gym)
   - Constraints (injuries, medical conditions)
   - Age & weight (optional)

2. Plan Generation 🗓️
   - Create a 7-day workout plan with specific activities & durations
   - Mix cardio, strength, flexibility according to goal
   - Vary intensity & rest days logically
   - Suggest warm-ups and cooldowns
   - Mark activities with emojis:
     🏃 Cardio | 🏋️ Strength | 🧘 Flexibility | ⏱️ Quick session
   - Give a "progression tip" for the next week
   - Allow plan edits after feedback

3. Presentation
   - Use markdown formatting
   - Present workouts in a structured day-by-day format
   - Add optional tips for nutrition pairing
   - Add warnings for injuries or medical issues

4. Feedback Adaptation 🔄
   - Accept weekly feedback
   - Adjust volume/intensity/duration accordingly`

// WorkoutRequest asks FitMentor for a weekly plan.
type WorkoutRequest struct {
	ActivityLevel string   `json:"activity_level" binding:"required"`
	FitnessGoal   string   `json:"fitness_goal" binding:"required"`
	TimePerDay    int      `json:"time_per_day" binding:"required,min=15,max=180"`
	Equipment     string   `json:"equipment" binding:"required"`
	Constraints   []string `json:"constraints"`
	Age           *int     `json:"age" binding:"omitempty,min=13,max=100"`
	Weight        *float64 `json:"weight" binding:"omitempty,min=30,max=300"`
}

// WorkoutAdaptRequest revises a workout plan.
type WorkoutAdaptRequest struct {
	CurrentPlan   string `json:"current_plan" binding:"required"`
	Feedback      string `json:"feedback" binding:"required"`
	ProgressNotes string `json:"progress_notes"`
}

// WorkoutPlan is a generated 7-day plan.
type WorkoutPlan struct {
	WorkoutPlan   string   `json:"workout_plan"`
	ActivityLevel string   `json:"activity_level"`
	FitnessGoal   string   `json:"fitness_goal"`
	TimePerDay    int      `json:"time_per_day"`
	Equipment     string   `json:"equipment"`
	Constraints   []string `json:"constraints"`
	Age           *int     `json:"age"`
	Weight        *float64 `json:"weight"`
}

// FitnessAgent is FitMentor.
type FitnessAgent struct {
	runner
}

// NewFitnessAgent creates the FitMentor agent.
func NewFitnessAgent(client llm.Client, logger *slog.Logger) *FitnessAgent {
	return &FitnessAgent{runner: newRunner(FitMentor, client, fitnessDescription, fitnessInstructions, logger)}
}

// GenerateWorkoutPlan returns a 7-day plan for req.
func (a *FitnessAgent) GenerateWorkoutPlan(ctx context.Context, req WorkoutRequest) (*WorkoutPlan, error) {
	constraints := "No specific constraints"
	if len(req.Constraints) > 0 {
		constraints = "Constraints: " + joinOr(req.Constraints, "")
	}
	prompt := lines(
		"Create a personalized weekly workout plan for me.",
		"\nMy details:",
		"- Activity Level: "+req.ActivityLevel,
		"- Fitness Goal: "+req.FitnessGoal,
		fmt.Sprintf("- Time Available: %d minutes per day", req.TimePerDay),
		"- Equipment: "+req.Equipment,
		ageWeight(req.Age, req.Weight),
		constraints,
		"\nPlease create a detailed 7-day workout plan with specific exercises, durations, and progression tips.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("workout plan generation failed: %w", err)
	}
	return &WorkoutPlan{
		WorkoutPlan:   text,
		ActivityLevel: req.ActivityLevel,
		FitnessGoal:   req.FitnessGoal,
		TimePerDay:    req.TimePerDay,
		Equipment:     req.Equipment,
		Constraints:   nonNil(req.Constraints),
		Age:           req.Age,
		Weight:        req.Weight,
	}, nil
}

// AdaptWorkoutPlan revises a plan from feedback and optional progress notes.
func (a *FitnessAgent) AdaptWorkoutPlan(ctx context.Context, req WorkoutAdaptRequest) (*AdaptedPlan, error) {
	notes := ""
	changes := map[string]any{}
	if req.ProgressNotes != "" {
		notes = "Progress Notes: " + req.ProgressNotes
		changes["progress_notes"] = req.ProgressNotes
	}
	prompt := lines(
		"Based on this feedback, please adapt the workout plan:",
		"\nCurrent Plan:",
		req.CurrentPlan,
		"\nUser Feedback:",
		req.Feedback,
		notes,
		"\nPlease provide an updated workout plan that addresses the feedback while maintaining progress.",
	)
	text, err := a.run(ctx, prompt, false)
	if err != nil {
		return nil, fmt.Errorf("workout plan adaptation failed: %w", err)
	}
	return &AdaptedPlan{AdaptedPlan: text, Feedback: req.Feedback, Changes: changes}, nil
}
