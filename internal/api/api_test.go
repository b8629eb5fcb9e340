package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"nutribot/internal/agent"
	"nutribot/internal/chatbot"
	"nutribot/internal/config"
	"nutribot/internal/credential"
	"nutribot/internal/db"
	"nutribot/internal/llm"
	"nutribot/internal/model"
	"nutribot/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient is a mock implementation of llm.Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	router *gin.Engine
	db     db.Service
	pool   *credential.Pool
	client *MockClient
	server *Server
}

func newTestEnv(t *testing.T, keys int, chatLimit int) *testEnv {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	service, err := db.NewService(config.DatabaseConfig{Type: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)

	creds := make([]config.Credential, 0, keys)
	for i := 0; i < keys; i++ {
		creds = append(creds, config.Credential{Key: fmt.Sprintf("gsk_test_%d", i), Label: fmt.Sprintf("GROQ_API_KEY_%d", i)})
	}
	pool := credential.NewPool(creds, 3, logger)

	cfg := &config.Config{
		Auth:    config.AuthConfig{JWTSecret: "test-secret", TokenTTLMinutes: 30},
		Chatbot: config.ChatbotConfig{RateLimitPerMinute: chatLimit},
	}
	client := new(MockClient)
	agents := agent.NewSet(client, nil, 0, service, logger)
	server := NewServer(Deps{
		Config:  cfg,
		DB:      service,
		Pool:    pool,
		Client:  client,
		Agents:  agents,
		Chat:    chatbot.NewManager(agents, chatbot.NewMemory(10), service, logger),
		Limiter: ratelimit.NewMemoryLimiter(time.Minute),
		Logger:  logger,
	})

	router := gin.New()
	router.Use(RequestID(), CustomRecovery(logger))
	server.SetupRoutes(router)
	return &testEnv{router: router, db: service, pool: pool, client: client, server: server}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

// login registers a user and returns a bearer token for it.
func (e *testEnv) login(t *testing.T, username string) string {
	resp := e.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    username + "@example.com",
		"username": username,
		"password": "s3cret!",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = e.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": username, "password": "s3cret!"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var token struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &token))
	return token.AccessToken
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	token := env.login(t, "asha")

	resp := env.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "asha@example.com", "username": "other", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Email already registered", decode(t, resp)["detail"])

	resp = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "new@example.com", "username": "asha", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Username already taken", decode(t, resp)["detail"])

	resp = env.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "not-an-email", "username": "x", "password": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = env.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "asha", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Bearer", resp.Header().Get("WWW-Authenticate"))

	// OAuth2 password form with the email as username.
	form := url.Values{"username": {"asha@example.com"}, "password": {"s3cret!"}}
	req, _ := http.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	formResp := httptest.NewRecorder()
	env.router.ServeHTTP(formResp, req)
	assert.Equal(t, http.StatusOK, formResp.Code)
	assert.Equal(t, "bearer", decode(t, formResp)["token_type"])

	resp = env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	me := decode(t, resp)
	assert.Equal(t, "asha@example.com", me["email"])
	assert.Equal(t, "moderately_active", me["activity_level"])
	assert.NotContains(t, me, "hashed_password")

	resp = env.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Not authenticated", decode(t, resp)["detail"])
}

func TestChatRoutes(t *testing.T) {
	t.Run("routes the query", func(t *testing.T) {
		env := newTestEnv(t, 2, 0)
		token := env.login(t, "ravi")
		env.client.On("Generate", mock.Anything, mock.Anything).Return("Chicken fried rice", nil)

		resp := env.do(http.MethodPost, "/api/chatbot/chat", token, gin.H{"query": "I have chicken and rice as ingredients"})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		body := decode(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, agent.ChefGenius, body["agent_used"])
		assert.Equal(t, "Chicken fried rice", body["response"].(map[string]any)["recipe"])

		resp = env.do(http.MethodPost, "/api/chatbot/chat/simple", token, gin.H{"query": "make it spicier"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Chicken fried rice", decode(t, resp)["response"])
	})

	t.Run("rate limited keys give the fallback", func(t *testing.T) {
		env := newTestEnv(t, 1, 0)
		token := env.login(t, "meera")
		env.client.On("Generate", mock.Anything, mock.Anything).Return("", &llm.APIError{StatusCode: 429, Message: "rate limit"})

		resp := env.do(http.MethodPost, "/api/chatbot/chat", token, gin.H{"query": "I want a gym workout"})
		require.Equal(t, http.StatusOK, resp.Code)
		body := decode(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["fallback"])
		assert.Contains(t, body["response"], "high usage")
	})

	t.Run("other provider errors are 500", func(t *testing.T) {
		env := newTestEnv(t, 1, 0)
		token := env.login(t, "dev")
		env.client.On("Generate", mock.Anything, mock.Anything).Return("", fmt.Errorf("connection refused"))

		resp := env.do(http.MethodPost, "/api/chatbot/chat", token, gin.H{"query": "I want a gym workout"})
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.Contains(t, decode(t, resp)["detail"], "Chatbot error")

		resp = env.do(http.MethodPost, "/api/chatbot/chat/simple", token, gin.H{"query": "I want a gym workout"})
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, decode(t, resp)["response"], "having trouble")
	})

	t.Run("per-user rate limit", func(t *testing.T) {
		env := newTestEnv(t, 1, 1)
		token := env.login(t, "lim")

		resp := env.do(http.MethodPost, "/api/chatbot/chat", token, gin.H{"query": "how many calories are there"})
		require.Equal(t, http.StatusOK, resp.Code)
		resp = env.do(http.MethodPost, "/api/chatbot/chat", token, gin.H{"query": "how many calories are there"})
		assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	})

	t.Run("public endpoints", func(t *testing.T) {
		env := newTestEnv(t, 1, 0)
		resp := env.do(http.MethodGet, "/api/chatbot/agents", "", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		var agents []chatbot.AgentInfo
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &agents))
		assert.Len(t, agents, 6)

		resp = env.do(http.MethodGet, "/api/chatbot/health", "", nil)
		assert.Equal(t, float64(6), decode(t, resp)["agents_available"])

		resp = env.do(http.MethodPost, "/api/chatbot/chat", "", gin.H{"query": "hi"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestKeyRoutes(t *testing.T) {
	env := newTestEnv(t, 2, 0)
	token := env.login(t, "ops")

	resp := env.do(http.MethodGet, "/api/api-keys/status", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	status := decode(t, resp)["api_keys_status"].(map[string]any)
	assert.Equal(t, float64(2), status["total_keys"])
	assert.NotContains(t, resp.Body.String(), "gsk_test_0")

	env.pool.RecordError(0)
	env.pool.RecordError(0)
	env.pool.RecordError(0)
	env.pool.RecordError(1)
	env.pool.RecordError(1)
	env.pool.RecordError(1)

	resp = env.do(http.MethodGet, "/api/system/health", token, nil)
	assert.Equal(t, "degraded", decode(t, resp)["health_status"])

	resp = env.do(http.MethodPost, "/api/api-keys/reset", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = env.do(http.MethodGet, "/api/system/health", token, nil)
	assert.Equal(t, "healthy", decode(t, resp)["health_status"])

	env.client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return req.Temperature != nil && *req.Temperature == 0
	})).Return("ok", nil).Once()
	resp = env.do(http.MethodPost, "/api/api-keys/test", token, nil)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "ok", body["response"])
	env.client.AssertExpectations(t)
}

func TestAgentRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	token := env.login(t, "chef")

	t.Run("validation", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/api/budget/meal-plan", token, gin.H{"budget_per_day": 10})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		resp = env.do(http.MethodPost, "/api/fitness/workout-plan", token, gin.H{"activity_level": "sedentary"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("budget plan", func(t *testing.T) {
		env.client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
			return strings.Contains(req.Prompt, "Budget: ₹150 per day")
		})).Return("Day plan", nil).Once()

		resp := env.do(http.MethodPost, "/api/budget/meal-plan", token, gin.H{"budget_per_day": 150})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		body := decode(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Day plan", body["data"].(map[string]any)["meal_plan"])
	})

	t.Run("structured plan is saved", func(t *testing.T) {
		env.client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
			return req.JSON && strings.Contains(req.Prompt, "1800")
		})).Return(`Here you go: {"days":[{"day":1}]}`, nil).Once()

		resp := env.do(http.MethodPost, "/api/advanced-meal-planner/generate", token, gin.H{"target_calories": 1800})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		body := decode(t, resp)
		assert.NotNil(t, body["meal_plan_id"])

		var count int64
		env.db.GetDB().Model(&model.MealPlan{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unusable structured output", func(t *testing.T) {
		env.client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
			return req.JSON && strings.Contains(req.Prompt, "1500")
		})).Return("I cannot do that", nil).Once()

		resp := env.do(http.MethodPost, "/api/advanced-meal-planner/generate", token, gin.H{"target_calories": 1500})
		require.Equal(t, http.StatusOK, resp.Code)
		body := decode(t, resp)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, agent.ErrNoJSON.Error(), body["error"])
	})

	t.Run("log analyzed meal", func(t *testing.T) {
		env.client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
			return strings.Contains(req.Prompt, "idli")
		})).Return("Calories: 58 kcal. Protein: 2g", nil).Once()

		resp := env.do(http.MethodPost, "/api/nutrient-analyzer/log-meal", token, gin.H{
			"food_name": "idli", "serving_size": "1 piece", "meal_type": "breakfast",
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		data := decode(t, resp)["data"].(map[string]any)
		assert.Equal(t, "breakfast", data["meal_type"])
		assert.Equal(t, float64(58), data["calories"])
	})
}

func TestGoalRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	token := env.login(t, "goal")

	resp := env.do(http.MethodPost, "/api/goals", token, gin.H{"goal_type": "weight_loss", "target_weight": 70})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	first := decode(t, resp)

	resp = env.do(http.MethodPost, "/api/goals", token, gin.H{"goal_type": "weight_loss", "target_weight": 68})
	require.Equal(t, http.StatusOK, resp.Code)
	second := decode(t, resp)

	resp = env.do(http.MethodGet, "/api/goals", token, nil)
	var active []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, second["id"], active[0]["id"])

	resp = env.do(http.MethodGet, "/api/goals?active_only=false", token, nil)
	var all []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	path := fmt.Sprintf("/api/goals/%v", first["id"])
	resp = env.do(http.MethodGet, path, token, nil)
	assert.Equal(t, false, decode(t, resp)["is_active"])

	resp = env.do(http.MethodPut, path, token, gin.H{"target_calories": 1800})
	require.Equal(t, http.StatusOK, resp.Code)
	updated := decode(t, resp)
	assert.Equal(t, float64(1800), updated["target_calories"])
	assert.Equal(t, float64(70), updated["target_weight"])

	other := env.login(t, "someone")
	resp = env.do(http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = env.do(http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(http.MethodGet, "/api/goals/abc", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestMealRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	token := env.login(t, "eater")

	oats := &model.FoodItem{Name: "Oats", CuisineType: "mixed", Calories: 150, ProteinG: 5, CarbsG: 27, FatG: 3}
	require.NoError(t, env.db.CreateFoodItem(oats))
	require.NoError(t, env.db.CreateFoodItem(&model.FoodItem{Name: "Oat milk", CuisineType: "mixed", Calories: 120}))

	resp := env.do(http.MethodPost, "/api/meals/log", token, gin.H{"food_item_id": oats.ID, "meal_type": "breakfast", "quantity": 2})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	logged := decode(t, resp)
	assert.Equal(t, float64(300), logged["calories"])
	assert.Equal(t, "Oats", logged["food_item"].(map[string]any)["name"])

	resp = env.do(http.MethodPost, "/api/meals/log", token, gin.H{"food_item_id": 999, "meal_type": "lunch"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(http.MethodGet, "/api/meals/history", token, nil)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "breakfast", history[0]["meal_type"])

	resp = env.do(http.MethodGet, "/api/meals/food-items?search=oat", "", nil)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Oats", items[0]["name"])

	resp = env.do(http.MethodGet, "/api/meals/food-items/search?q=o", "", nil)
	assert.Equal(t, "[]", strings.TrimSpace(resp.Body.String()))

	resp = env.do(http.MethodGet, "/api/meals/food-items/search?q=milk", "", nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &items))
	assert.Len(t, items, 1)

	resp = env.do(http.MethodGet, "/api/meals/food-items/search", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestProfileRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	token := env.login(t, "meera")

	resp := env.do(http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = env.do(http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	profile := decode(t, resp)
	assert.Equal(t, "moderately_active", profile["activity_level"])
	assert.Equal(t, "mixed", profile["cuisine_pref"])

	resp = env.do(http.MethodPut, "/api/users/profile", token, gin.H{"age": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = env.do(http.MethodPut, "/api/users/profile", token, gin.H{
		"age":                 31,
		"activity_level":      "very_active",
		"dietary_preferences": []string{"vegan"},
		"cuisine_pref":        "south_indian",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	profile = decode(t, resp)
	assert.Equal(t, float64(31), profile["age"])
	assert.Equal(t, "very_active", profile["activity_level"])
	assert.Equal(t, []any{"vegan"}, profile["dietary_preferences"])
	assert.Equal(t, "meera@example.com", profile["email"])

	resp = env.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, "south_indian", decode(t, resp)["cuisine_pref"])

	// The chatbot reads the updated profile as its dietary default.
	env.client.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
		return strings.Contains(req.Prompt, "This must be a VEGAN recipe")
	})).Return("Vegan fried rice", nil).Once()
	resp = env.do(http.MethodPost, "/api/chatbot/chat", token, gin.H{"query": "I have chicken and rice as ingredients, what can I cook?"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, true, decode(t, resp)["success"])
	env.client.AssertExpectations(t)
}

func TestTrackingRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	token := env.login(t, "tracker")
	env.login(t, "someone")

	user, err := env.db.GetUserByUsername("tracker")
	require.NoError(t, err)
	other, err := env.db.GetUserByUsername("someone")
	require.NoError(t, err)

	at := func(day, hour int) time.Time {
		return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
	}
	for _, entry := range []*model.MealLog{
		{UserID: user.ID, FoodItemID: 1, MealType: "breakfast", Calories: 300, Protein: 10, Carbs: 40, Fat: 5, LoggedAt: at(11, 8)},
		{UserID: user.ID, FoodItemID: 1, MealType: "lunch", Calories: 400, Protein: 20, Carbs: 50, Fat: 10, LoggedAt: at(13, 12)},
		{UserID: user.ID, FoodItemID: 1, MealType: "dinner", Calories: 700, Protein: 30, Carbs: 60, Fat: 25, LoggedAt: at(13, 19)},
		{UserID: user.ID, FoodItemID: 1, MealType: "dinner", Calories: 1000, LoggedAt: at(10, 20)},
		{UserID: user.ID, FoodItemID: 1, MealType: "dinner", Calories: 999, LoggedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{UserID: other.ID, FoodItemID: 1, MealType: "lunch", Calories: 5000, LoggedAt: at(13, 13)},
	} {
		require.NoError(t, env.db.CreateMealLog(entry))
	}
	// Wednesday afternoon.
	env.server.now = func() time.Time { return at(13, 15) }

	t.Run("daily", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/tracking/daily/2024-03-13", token, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var day DailyStats
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &day))
		assert.Equal(t, DailyStats{Date: "2024-03-13", TotalCalories: 1100, TotalProtein: 50, TotalCarbs: 110, TotalFat: 35, MealCount: 2}, day)

		resp = env.do(http.MethodGet, "/api/tracking/daily/2024-03-12", token, nil)
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &day))
		assert.Equal(t, 0, day.MealCount)

		resp = env.do(http.MethodGet, "/api/tracking/daily/13-03-2024", token, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

		resp = env.do(http.MethodGet, "/api/tracking/daily/2024-03-13", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("weekly", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/tracking/weekly", token, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var week WeeklyStats
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &week))
		assert.Equal(t, "2024-03-11", week.WeekStart)
		assert.Equal(t, "2024-03-17", week.WeekEnd)
		require.Len(t, week.DailyStats, 7)
		assert.Equal(t, 300.0, week.DailyStats[0].TotalCalories)
		assert.Equal(t, 0, week.DailyStats[1].MealCount)
		assert.Equal(t, 1100.0, week.DailyStats[2].TotalCalories)
		assert.Equal(t, "2024-03-13", week.DailyStats[2].Date)
		assert.Equal(t, 200.0, week.WeeklyAverages["calories"])
		assert.InDelta(t, 3.0/7, week.WeeklyAverages["meals"], 1e-9)
	})

	t.Run("progress", func(t *testing.T) {
		resp := env.do(http.MethodGet, "/api/tracking/progress", token, nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		body := decode(t, resp)
		assert.Equal(t, float64(30), body["period_days"])
		assert.Equal(t, float64(3), body["days_logged"])
		assert.Equal(t, float64(4), body["total_meals"])
		assert.Equal(t, float64(2400), body["total_calories"])
		assert.Equal(t, float64(800), body["daily_averages"].(map[string]any)["calories"])
	})
}

func TestRecipeOptionRoutes(t *testing.T) {
	env := newTestEnv(t, 1, 0)
	require.NoError(t, env.db.CreateFoodItem(&model.FoodItem{Name: "Dosa", CuisineType: "south_indian", Calories: 170}))
	require.NoError(t, env.db.CreateFoodItem(&model.FoodItem{Name: "Poha", CuisineType: "maharashtrian", Calories: 180}))

	resp := env.do(http.MethodGet, "/api/recipes/cuisines", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var cuisines []string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &cuisines))
	assert.Equal(t, []string{"maharashtrian", "south_indian"}, cuisines)

	resp = env.do(http.MethodGet, "/api/recipes/meal-types", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var types []string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &types))
	assert.Equal(t, []string{"breakfast", "lunch", "dinner", "snack"}, types)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	router := gin.New()
	router.Use(RequestID(), CustomRecovery(logger))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotEmpty(t, resp.Header().Get(RequestIDHeader))

	req, _ = http.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, "abc-123", resp.Body.String())
	assert.Equal(t, "abc-123", resp.Header().Get(RequestIDHeader))
}
