package model

import (
	"time"

	"gorm.io/datatypes"
)

// User is an account holder. Profile fields feed the chatbot's slot defaults.
type User struct {
	ID                 uint                        `gorm:"primaryKey" json:"id"`
	Email              string                      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username           string                      `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	HashedPassword     string                      `gorm:"type:varchar(255);not null" json:"-"`
	FullName           string                      `gorm:"type:varchar(255)" json:"full_name"`
	Age                *int                        `json:"age"`
	Weight             *float64                    `json:"weight"`
	Height             *float64                    `json:"height"`
	ActivityLevel      string                      `gorm:"type:varchar(50)" json:"activity_level"`
	HealthConditions   datatypes.JSONSlice[string] `json:"health_conditions"`
	DietaryPreferences datatypes.JSONSlice[string] `json:"dietary_preferences"`
	CuisinePref        string                      `gorm:"type:varchar(50);default:'mixed'" json:"cuisine_pref"`
	IsActive           bool                        `gorm:"default:true;not null" json:"is_active"`
	CreatedAt          time.Time                   `json:"created_at"`
}
