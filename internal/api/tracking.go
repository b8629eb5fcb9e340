package api

import (
	"net/http"
	"time"

	"nutribot/internal/auth"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// progressDays is the window the progress summary covers.
const progressDays = 30

// DailyStats totals one calendar day (UTC) of meal logs.
type DailyStats struct {
	Date          string  `json:"date"`
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalCarbs    float64 `json:"total_carbs"`
	TotalFat      float64 `json:"total_fat"`
	MealCount     int     `json:"meal_count"`
}

func (d *DailyStats) add(entry model.MealLog) {
	d.TotalCalories += entry.Calories
	d.TotalProtein += entry.Protein
	d.TotalCarbs += entry.Carbs
	d.TotalFat += entry.Fat
	d.MealCount++
}

// WeeklyStats covers Monday through Sunday of the current week.
type WeeklyStats struct {
	WeekStart      string             `json:"week_start"`
	WeekEnd        string             `json:"week_end"`
	DailyStats     []DailyStats       `json:"daily_stats"`
	WeeklyAverages map[string]float64 `json:"weekly_averages"`
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Server) logsBetween(c *gin.Context, userID uint, from, to time.Time) ([]model.MealLog, bool) {
	logs, err := s.db.ListMealLogsBetween(userID, from, to)
	if err != nil {
		s.logger.Error("Failed to load meal logs", "user_id", userID, "error", err)
		detail(c, http.StatusInternalServerError, "Failed to load meal logs")
		return nil, false
	}
	return logs, true
}

// DailyTracking totals the meals logged on the :date path parameter (YYYY-MM-DD).
func (s *Server) DailyTracking(c *gin.Context) {
	day, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "date must be formatted as YYYY-MM-DD")
		return
	}
	user, _ := auth.CurrentUser(c)

	logs, ok := s.logsBetween(c, user.ID, day, day.AddDate(0, 0, 1))
	if !ok {
		return
	}
	stats := DailyStats{Date: day.Format(dateLayout)}
	for _, entry := range logs {
		stats.add(entry)
	}
	c.JSON(http.StatusOK, stats)
}

// WeeklyTracking returns per-day totals for the current week and their 7-day averages.
func (s *Server) WeeklyTracking(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	today := startOfDay(s.now())
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	logs, ok := s.logsBetween(c, user.ID, weekStart, weekStart.AddDate(0, 0, 7))
	if !ok {
		return
	}

	days := make([]DailyStats, 7)
	for i := range days {
		days[i].Date = weekStart.AddDate(0, 0, i).Format(dateLayout)
	}
	var total DailyStats
	for _, entry := range logs {
		i := int(startOfDay(entry.LoggedAt).Sub(weekStart) / (24 * time.Hour))
		if i < 0 || i >= len(days) {
			continue
		}
		days[i].add(entry)
		total.add(entry)
	}

	c.JSON(http.StatusOK, WeeklyStats{
		WeekStart:  weekStart.Format(dateLayout),
		WeekEnd:    weekStart.AddDate(0, 0, 6).Format(dateLayout),
		DailyStats: days,
		WeeklyAverages: map[string]float64{
			"calories": total.TotalCalories / 7,
			"protein":  total.TotalProtein / 7,
			"carbs":    total.TotalCarbs / 7,
			"fat":      total.TotalFat / 7,
			"meals":    float64(total.MealCount) / 7,
		},
	})
}

// ProgressSummary totals the last 30 days and averages them over the days that have logs.
func (s *Server) ProgressSummary(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	now := s.now().UTC()
	logs, ok := s.logsBetween(c, user.ID, now.AddDate(0, 0, -progressDays), now.Add(time.Second))
	if !ok {
		return
	}

	var total DailyStats
	logged := make(map[string]bool)
	for _, entry := range logs {
		total.add(entry)
		logged[entry.LoggedAt.UTC().Format(dateLayout)] = true
	}
	averages := map[string]float64{"calories": 0, "protein": 0, "carbs": 0, "fat": 0}
	if n := float64(len(logged)); n > 0 {
		averages["calories"] = total.TotalCalories / n
		averages["protein"] = total.TotalProtein / n
		averages["carbs"] = total.TotalCarbs / n
		averages["fat"] = total.TotalFat / n
	}

	c.JSON(http.StatusOK, gin.H{
		"period_days":    progressDays,
		"days_logged":    len(logged),
		"total_meals":    total.MealCount,
		"total_calories": total.TotalCalories,
		"total_protein":  total.TotalProtein,
		"total_carbs":    total.TotalCarbs,
		"total_fat":      total.TotalFat,
		"daily_averages": averages,
	})
}
