// Package auth issues and verifies user access tokens and guards routes with them.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutribot/internal/config"
	"nutribot/internal/db"
	"nutribot/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const userContextKey = "auth_user"

var (
	// ErrInvalidCredentials is returned when the identifier or password does not match.
	ErrInvalidCredentials = errors.New("incorrect email or password")
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
	ErrInvalidToken = errors.New("could not validate credentials")
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Tokens signs and verifies HS256 access tokens whose subject is the user's email.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token signer from the auth configuration.
func NewTokens(cfg config.AuthConfig) *Tokens {
	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Tokens{secret: []byte(cfg.JWTSecret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for subject and its expiry.
func (t *Tokens) Issue(subject string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// Subject verifies token and returns its subject.
func (t *Tokens) Subject(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate looks the user up by email, then username, and checks the password.
func Authenticate(dbService db.Service, identifier, password string) (*model.User, error) {
	user, err := dbService.GetUserByEmail(identifier)
	if errors.Is(err, db.ErrNotFound) {
		user, err = dbService.GetUserByUsername(identifier)
	}
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.HashedPassword, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func bearerToken(c *gin.Context) string {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func resolveUser(c *gin.Context, tokens *Tokens, dbService db.Service) (*model.User, int, string) {
	token := bearerToken(c)
	if token == "" {
		return nil, http.StatusUnauthorized, "Not authenticated"
	}
	email, err := tokens.Subject(token)
	if err != nil {
		return nil, http.StatusUnauthorized, "Could not validate credentials"
	}
	user, err := dbService.GetUserByEmail(email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, http.StatusUnauthorized, "Could not validate credentials"
	}
	if err != nil {
		return nil, http.StatusInternalServerError, "Database error"
	}
	if !user.IsActive {
		return nil, http.StatusBadRequest, "Inactive user"
	}
	return user, http.StatusOK, ""
}

// RequireUser rejects requests without a valid bearer token for an active user.
func RequireUser(tokens *Tokens, dbService db.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, status, msg := resolveUser(c, tokens, dbService)
		if user == nil {
			if status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "Bearer")
			}
			c.AbortWithStatusJSON(status, gin.H{"detail": msg})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// OptionalUser attaches the user when a valid token is present and never rejects.
func OptionalUser(tokens *Tokens, dbService db.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, _, _ := resolveUser(c, tokens, dbService); user != nil {
			c.Set(userContextKey, user)
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireUser or OptionalUser.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}

func AdminAuthMiddleware(adminPassword string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, password, hasAuth := c.Request.BasicAuth()
		if !hasAuth || user != "admin" || adminPassword == "" || password != adminPassword {
			c.Header("WWW-Authenticate", `Basic realm="Restricted"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
