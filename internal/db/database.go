package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nutribot/internal/config"
	"nutribot/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// FoodFilter narrows ListFoodItems.
type FoodFilter struct {
	Search      string
	CuisineType string
	Limit       int
}

// Service is the persistence surface used by the handlers and agents.
type Service interface {
	GetDB() *gorm.DB

	CreateUser(user *model.User) error
	GetUserByID(id uint) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByUsername(username string) (*model.User, error)
	UpdateUser(user *model.User) error

	GetFoodItem(id uint) (*model.FoodItem, error)
	CreateFoodItem(item *model.FoodItem) error
	FindFoodItemByNameAndCalories(name string, calories float64) (*model.FoodItem, error)
	ListFoodItems(filter FoodFilter) ([]model.FoodItem, error)
	SearchFoodItems(query string, limit int) ([]model.FoodItem, error)
	ListCuisines() ([]string, error)

	CreateMealLog(log *model.MealLog) error
	ListMealLogs(userID uint, limit int) ([]model.MealLog, error)
	ListMealLogsBetween(userID uint, from, to time.Time) ([]model.MealLog, error)

	CreateMealPlan(plan *model.MealPlan) error

	CreateGoal(goal *model.Goal) error
	ListGoals(userID uint, activeOnly bool) ([]model.Goal, error)
	GetGoal(userID, id uint) (*model.Goal, error)
	UpdateGoal(goal *model.Goal) error
	DeleteGoal(userID, id uint) error
}

type service struct {
	db *gorm.DB
}

// NewService opens the configured database and migrates the schema.
func NewService(cfg config.DatabaseConfig) (Service, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == "sqlite" {
		// Each new connection to an in-memory sqlite DSN gets its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(&model.User{}, &model.FoodItem{}, &model.MealLog{}, &model.MealPlan{}, &model.Goal{})
	if err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &service{db: db}, nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *service) CreateUser(user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *service) GetUserByID(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *service) GetUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *service) GetUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *service) UpdateUser(user *model.User) error {
	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *service) GetFoodItem(id uint) (*model.FoodItem, error) {
	var item model.FoodItem
	if err := s.db.First(&item, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *service) CreateFoodItem(item *model.FoodItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Create(item).Error; err != nil {
		return fmt.Errorf("failed to create food item: %w", err)
	}
	return nil
}

// FindFoodItemByNameAndCalories matches names case-insensitively by substring and calories exactly.
func (s *service) FindFoodItemByNameAndCalories(name string, calories float64) (*model.FoodItem, error) {
	var item model.FoodItem
	err := s.db.
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Where("calories = ?", calories).
		First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// ListFoodItems filters out items above 1000 kcal or 1000 mg sodium. When searching, shorter
// names sort first.
func (s *service) ListFoodItems(filter FoodFilter) ([]model.FoodItem, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := s.db.Model(&model.FoodItem{})
	if filter.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.CuisineType != "" && filter.CuisineType != "mixed" {
		query = query.Where("cuisine_type = ?", filter.CuisineType)
	}
	query = query.Where("calories <= ?", 1000).Where("sodium_mg <= ?", 1000)
	if filter.Search != "" {
		query = query.Order("LENGTH(name)").Order("name")
	} else {
		query = query.Order("name")
	}

	var items []model.FoodItem
	if err := query.Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list food items: %w", err)
	}
	return items, nil
}

func (s *service) SearchFoodItems(q string, limit int) ([]model.FoodItem, error) {
	if limit <= 0 {
		limit = 20
	}
	var items []model.FoodItem
	err := s.db.
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%").
		Where("calories <= ?", 1000).
		Order("name").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search food items: %w", err)
	}
	return items, nil
}

// ListCuisines returns the distinct, non-empty cuisine types of the catalogue.
func (s *service) ListCuisines() ([]string, error) {
	var cuisines []string
	err := s.db.Model(&model.FoodItem{}).
		Where("cuisine_type IS NOT NULL AND cuisine_type <> ''").
		Distinct().
		Order("cuisine_type").
		Pluck("cuisine_type", &cuisines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cuisines: %w", err)
	}
	return cuisines, nil
}

func (s *service) CreateMealLog(log *model.MealLog) error {
	if log.LoggedAt.IsZero() {
		log.LoggedAt = time.Now().UTC()
	}
	if err := s.db.Omit("FoodItem").Create(log).Error; err != nil {
		return fmt.Errorf("failed to create meal log: %w", err)
	}
	return nil
}

func (s *service) ListMealLogs(userID uint, limit int) ([]model.MealLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.MealLog
	err := s.db.Preload("FoodItem").
		Where("user_id = ?", userID).
		Order("logged_at desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meal logs: %w", err)
	}
	return logs, nil
}

// ListMealLogsBetween returns the user's logs with from <= logged_at < to, oldest first.
func (s *service) ListMealLogsBetween(userID uint, from, to time.Time) ([]model.MealLog, error) {
	var logs []model.MealLog
	err := s.db.Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from, to).
		Order("logged_at asc").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list meal logs: %w", err)
	}
	return logs, nil
}

func (s *service) CreateMealPlan(plan *model.MealPlan) error {
	if err := s.db.Create(plan).Error; err != nil {
		return fmt.Errorf("failed to save meal plan: %w", err)
	}
	return nil
}

// CreateGoal stores goal as the user's only active goal of its type.
func (s *service) CreateGoal(goal *model.Goal) error {
	now := time.Now().UTC()
	if goal.StartDate.IsZero() {
		goal.StartDate = now
	}
	goal.CreatedAt = now
	goal.IsActive = true

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Goal{}).
			Where("user_id = ? AND goal_type = ? AND is_active = ?", goal.UserID, goal.GoalType, true).
			Update("is_active", false).Error
		if err != nil {
			return fmt.Errorf("failed to deactivate previous goals: %w", err)
		}
		if err := tx.Create(goal).Error; err != nil {
			return fmt.Errorf("failed to create goal: %w", err)
		}
		return nil
	})
}

func (s *service) ListGoals(userID uint, activeOnly bool) ([]model.Goal, error) {
	query := s.db.Where("user_id = ?", userID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var goals []model.Goal
	if err := query.Order("created_at desc").Order("id desc").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

func (s *service) GetGoal(userID, id uint) (*model.Goal, error) {
	var goal model.Goal
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		return nil, notFound(err)
	}
	return &goal, nil
}

func (s *service) UpdateGoal(goal *model.Goal) error {
	if err := s.db.Save(goal).Error; err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

func (s *service) DeleteGoal(userID, id uint) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Goal{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete goal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
