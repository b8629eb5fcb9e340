package model

import (
	"time"

	"gorm.io/datatypes"
)

// FoodItem is a catalogued food with per-serving nutrition.
type FoodItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);index;not null" json:"name"`
	CuisineType string    `gorm:"type:varchar(50);default:'mixed'" json:"cuisine_type"`
	Calories    float64   `gorm:"not null" json:"calories"`
	ProteinG    float64   `gorm:"default:0" json:"protein_g"`
	CarbsG      float64   `gorm:"default:0" json:"carbs_g"`
	FatG        float64   `gorm:"default:0" json:"fat_g"`
	FiberG      float64   `gorm:"default:0" json:"fiber_g"`
	SodiumMg    float64   `gorm:"default:0" json:"sodium_mg"`
	SugarG      float64   `gorm:"default:0" json:"sugar_g"`
	Cost        float64   `gorm:"default:0" json:"cost"`
	Ingredients string    `gorm:"type:text" json:"ingredients"`
	Tags        string    `gorm:"type:text" json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// MealLog records something a user ate. Nutrition values are already scaled by Quantity.
type MealLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	FoodItemID uint      `gorm:"not null" json:"food_item_id"`
	FoodItem   *FoodItem `json:"food_item,omitempty"`
	MealType   string    `gorm:"type:varchar(20);not null" json:"meal_type"`
	Quantity   float64   `gorm:"default:1" json:"quantity"`
	Calories   float64   `json:"calories"`
	Protein    float64   `json:"protein"`
	Carbs      float64   `json:"carbs"`
	Fat        float64   `json:"fat"`
	LoggedAt   time.Time `gorm:"index" json:"logged_at"`
	Planned    bool      `json:"planned"`
}

// MealPlan stores a generated 7-day plan as JSON.
type MealPlan struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          *uint          `gorm:"index" json:"user_id"`
	TargetCalories  int            `json:"target_calories"`
	MealsPerDay     int            `json:"meals_per_day"`
	RegionOrCuisine string         `gorm:"type:varchar(100)" json:"region_or_cuisine"`
	Plan            datatypes.JSON `json:"plan"`
	CreatedAt       time.Time      `json:"created_at"`
}
