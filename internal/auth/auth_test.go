package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nutribot/internal/config"
	"nutribot/internal/db"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) db.Service {
	service, err := db.NewService(config.DatabaseConfig{Type: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	return service
}

func createUser(t *testing.T, service db.Service, email, username, password string, active bool) *model.User {
	hash, err := HashPassword(password)
	require.NoError(t, err)
	user := &model.User{Email: email, Username: username, HashedPassword: hash, IsActive: true}
	require.NoError(t, service.CreateUser(user))
	if !active {
		require.NoError(t, service.GetDB().Model(user).Update("is_active", false).Error)
	}
	return user
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestTokens(t *testing.T) {
	tokens := NewTokens(config.AuthConfig{JWTSecret: "secret", TokenTTLMinutes: 30})
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	token, expires, err := tokens.Issue("asha@example.com")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), expires)

	subject, err := tokens.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", subject)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens(config.AuthConfig{JWTSecret: "other"})
		other.now = tokens.now
		_, err := other.Subject(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		tokens.now = func() time.Time { return now.Add(time.Hour) }
		defer func() { tokens.now = func() time.Time { return now } }()
		_, err := tokens.Subject(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Subject("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAuthenticate(t *testing.T) {
	service := setupTestDB(t)
	user := createUser(t, service, "asha@example.com", "asha", "pw", true)

	byEmail, err := Authenticate(service, "asha@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := Authenticate(service, "asha", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = Authenticate(service, "asha", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = Authenticate(service, "nobody", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := setupTestDB(t)
	tokens := NewTokens(config.AuthConfig{JWTSecret: "secret"})
	createUser(t, service, "active@example.com", "active", "pw", true)
	createUser(t, service, "inactive@example.com", "inactive", "pw", false)

	router := gin.New()
	router.GET("/me", RequireUser(tokens, service), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, user.Email)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	rr := do("")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))

	rr = do("Bearer invalid")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, _, err := tokens.Issue("active@example.com")
	require.NoError(t, err)
	rr = do("Bearer " + token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "active@example.com", rr.Body.String())

	token, _, err = tokens.Issue("inactive@example.com")
	require.NoError(t, err)
	rr = do("Bearer " + token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	token, _, err = tokens.Issue("ghost@example.com")
	require.NoError(t, err)
	rr = do("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOptionalUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := setupTestDB(t)
	tokens := NewTokens(config.AuthConfig{JWTSecret: "secret"})
	createUser(t, service, "asha@example.com", "asha", "pw", true)

	router := gin.New()
	router.GET("/", OptionalUser(tokens, service), func(c *gin.Context) {
		if user, ok := CurrentUser(c); ok {
			c.String(http.StatusOK, user.Username)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "anonymous", rr.Body.String())

	req.Header.Set("Authorization", "Bearer broken")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())

	token, _, err := tokens.Issue("asha@example.com")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "asha", rr.Body.String())
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(AdminAuthMiddleware("admin-pass"))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Test with no credentials
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	// Test with wrong password
	req.SetBasicAuth("admin", "wrong")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	// Test with valid credentials
	req.SetBasicAuth("admin", "admin-pass")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
}
