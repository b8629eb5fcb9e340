package model

import "time"

// Goal is a nutrition or body-weight target. Only one goal per type is active for a user.
type Goal struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index;not null" json:"-"`
	GoalType       string     `gorm:"type:varchar(50);not null" json:"goal_type"`
	TargetWeight   *float64   `json:"target_weight"`
	TargetCalories *float64   `json:"target_calories"`
	TargetProtein  *float64   `json:"target_protein"`
	TargetCarbs    *float64   `json:"target_carbs"`
	TargetFat      *float64   `json:"target_fat"`
	StartDate      time.Time  `json:"start_date"`
	TargetDate     *time.Time `json:"target_date"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
}
