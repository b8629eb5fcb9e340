package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nutribot/internal/auth"
	"nutribot/internal/db"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
)

// MealLogRequest logs a catalogued food.
type MealLogRequest struct {
	FoodItemID uint    `json:"food_item_id" binding:"required"`
	MealType   string  `json:"meal_type" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"omitempty,gt=0"`
}

// MealLogResponse is a logged meal with a short description of its food.
type MealLogResponse struct {
	ID       uint      `json:"id"`
	FoodItem gin.H     `json:"food_item"`
	MealType string    `json:"meal_type"`
	Quantity float64   `json:"quantity"`
	Calories float64   `json:"calories"`
	Protein  float64   `json:"protein"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
	LoggedAt time.Time `json:"logged_at"`
}

func mealLogResponse(entry *model.MealLog, item *model.FoodItem) MealLogResponse {
	food := gin.H{}
	if item != nil {
		food = gin.H{"id": item.ID, "name": item.Name, "cuisine_type": item.CuisineType}
	}
	return MealLogResponse{
		ID:       entry.ID,
		FoodItem: food,
		MealType: entry.MealType,
		Quantity: entry.Quantity,
		Calories: entry.Calories,
		Protein:  entry.Protein,
		Carbs:    entry.Carbs,
		Fat:      entry.Fat,
		LoggedAt: entry.LoggedAt,
	}
}

// LogMeal records a food item eaten by the user, scaling its nutrition by quantity.
func (s *Server) LogMeal(c *gin.Context) {
	var req MealLogRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	user, _ := auth.CurrentUser(c)

	item, err := s.db.GetFoodItem(req.FoodItemID)
	if errors.Is(err, db.ErrNotFound) {
		detail(c, http.StatusNotFound, "Food item not found")
		return
	}
	if err != nil {
		s.logger.Error("Failed to load food item", "food_item_id", req.FoodItemID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to load food item")
		return
	}

	entry := &model.MealLog{
		UserID:     user.ID,
		FoodItemID: item.ID,
		MealType:   req.MealType,
		Quantity:   req.Quantity,
		Calories:   item.Calories * req.Quantity,
		Protein:    item.ProteinG * req.Quantity,
		Carbs:      item.CarbsG * req.Quantity,
		Fat:        item.FatG * req.Quantity,
		LoggedAt:   s.now().UTC(),
	}
	if err := s.db.CreateMealLog(entry); err != nil {
		s.logger.Error("Failed to log meal", "user_id", user.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to log meal")
		return
	}
	c.JSON(http.StatusOK, mealLogResponse(entry, item))
}

// MealHistory lists the user's most recent meals.
func (s *Server) MealHistory(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(c)

	logs, err := s.db.ListMealLogs(user.ID, limit)
	if err != nil {
		s.logger.Error("Failed to list meal logs", "user_id", user.ID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to load meal history")
		return
	}
	out := make([]MealLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, mealLogResponse(&logs[i], logs[i].FoodItem))
	}
	c.JSON(http.StatusOK, out)
}

// ListFoodItems browses the food catalogue.
func (s *Server) ListFoodItems(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 100)
	if !ok {
		return
	}
	items, err := s.db.ListFoodItems(db.FoodFilter{
		Search:      c.Query("search"),
		CuisineType: c.Query("cuisine_type"),
		Limit:       limit,
	})
	if err != nil {
		s.logger.Error("Failed to list food items", "error", err)
		detail(c, http.StatusInternalServerError, "Failed to list food items")
		return
	}
	c.JSON(http.StatusOK, items)
}

// SearchFoodItems matches food names. Queries shorter than two characters return nothing.
func (s *Server) SearchFoodItems(c *gin.Context) {
	q, ok := c.GetQuery("q")
	if !ok {
		detail(c, http.StatusUnprocessableEntity, "q is required")
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	if len(strings.TrimSpace(q)) < 2 {
		c.JSON(http.StatusOK, []model.FoodItem{})
		return
	}
	items, err := s.db.SearchFoodItems(strings.TrimSpace(q), limit)
	if err != nil {
		s.logger.Warn("Food search failed", "error", err)
		c.JSON(http.StatusOK, []model.FoodItem{})
		return
	}
	c.JSON(http.StatusOK, items)
}

// mealTypes are the meal slots accepted across the API.
var mealTypes = []string{"breakfast", "lunch", "dinner", "snack"}

// ListCuisines returns the cuisine types present in the food catalogue.
func (s *Server) ListCuisines(c *gin.Context) {
	cuisines, err := s.db.ListCuisines()
	if err != nil {
		s.logger.Error("Failed to list cuisines", "error", err)
		detail(c, http.StatusInternalServerError, "Failed to list cuisines")
		return
	}
	c.JSON(http.StatusOK, nonNilStrings(cuisines))
}

// ListMealTypes returns the accepted meal types.
func (s *Server) ListMealTypes(c *gin.Context) {
	c.JSON(http.StatusOK, mealTypes)
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		detail(c, http.StatusUnprocessableEntity, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}
