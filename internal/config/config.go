package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DatabaseConfig holds the database connection information.
type DatabaseConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// Credential is one provider API key together with its display label.
type Credential struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// LLMConfig holds configuration for the upstream language model provider.
type LLMConfig struct {
	Provider        string       `yaml:"provider"`
	Model           string       `yaml:"model"`
	BaseURL         string       `yaml:"base_url"`
	Keys            []Credential `yaml:"keys"`
	MaxErrorsPerKey int          `yaml:"max_errors_per_key"`
	TimeoutSeconds  int          `yaml:"timeout_seconds"`
}

// AuthConfig holds configuration for issuing user access tokens.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// AdminConfig holds configuration for the admin endpoints.
type AdminConfig struct {
	Password string `yaml:"password"`
}

// RedisConfig holds the optional Redis connection used for caching and rate limiting.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a Redis URL or address is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Addr) != ""
}

// ChatbotConfig holds limits for the conversational router.
type ChatbotConfig struct {
	MaxUsers           int `yaml:"max_users"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	RecipeCacheHours   int `yaml:"recipe_cache_hours"`
}

// SchedulerConfig holds the cron specs for background jobs.
type SchedulerConfig struct {
	KeyHealthCheck    string `yaml:"key_health_check"`
	MemoryPrune       string `yaml:"memory_prune"`
	PoolReset         string `yaml:"pool_reset"`
	MemoryIdleMinutes int    `yaml:"memory_idle_minutes"`
}

// Config holds the configuration for the service.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	Redis     RedisConfig     `yaml:"redis"`
	Chatbot   ChatbotConfig   `yaml:"chatbot"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Port      int             `yaml:"port"`
	Debug     bool            `yaml:"debug"`
	LogFormat string          `yaml:"log_format"`
}

// credentialEnv lists the environment variables that seed the credential pool, in pool order.
var credentialEnv = []Credential{
	{Key: "GROQ_API_KEY", Label: "primary"},
	{Key: "GROQ_API_KEY_2", Label: "secondary"},
	{Key: "GROQ_API_KEY_3", Label: "tertiary"},
}

// LoadConfig reads and parses the configuration file. It returns the config and a potential warning message.
var LoadConfig = func(path string) (*Config, string, error) {
	var config Config
	var warnings []string

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err == nil {
		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, "", fmt.Errorf("failed to read config file: %w", err)
	}
	// If file does not exist, we continue with an empty config and rely on environment variables.

	applyEnv(&config)
	config.LLM.Keys = mergeCredentials(envCredentials(), config.LLM.Keys)

	// Set default values
	if config.LLM.MaxErrorsPerKey == 0 {
		config.LLM.MaxErrorsPerKey = 3
		warnings = append(warnings, "llm.max_errors_per_key not set, using default value of 3")
	}
	if config.LLM.Provider == "" {
		config.LLM.Provider = "groq"
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = 60
	}
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.Database.Type == "" && config.Database.DSN == "" {
		config.Database = DatabaseConfig{Type: "sqlite", DSN: "nutribot.db"}
	}
	if config.Auth.TokenTTLMinutes == 0 {
		config.Auth.TokenTTLMinutes = 30
	}
	if config.Auth.JWTSecret == "" {
		config.Auth.JWTSecret = "change-me"
		warnings = append(warnings, "auth.jwt_secret not set, using an insecure development secret")
	}
	if config.Chatbot.MaxUsers == 0 {
		config.Chatbot.MaxUsers = 1000
	}
	if config.Chatbot.RecipeCacheHours == 0 {
		config.Chatbot.RecipeCacheHours = 24
	}
	if config.Scheduler.KeyHealthCheck == "" {
		config.Scheduler.KeyHealthCheck = "@every 30m"
	}
	if config.Scheduler.MemoryPrune == "" {
		config.Scheduler.MemoryPrune = "@hourly"
	}
	if config.Scheduler.PoolReset == "" {
		config.Scheduler.PoolReset = "@daily"
	}
	if config.Scheduler.MemoryIdleMinutes == 0 {
		config.Scheduler.MemoryIdleMinutes = 120
	}
	if len(config.LLM.Keys) == 0 {
		warnings = append(warnings, "no LLM API keys configured; chatbot agents will only return fallback responses")
	}

	// Final validation after overrides
	if config.Database.Type == "" || config.Database.DSN == "" {
		return nil, "", fmt.Errorf("database type and dsn must be configured in config.yaml or via environment variables")
	}
	switch config.LLM.Provider {
	case "groq", "gemini":
	default:
		return nil, "", fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
	}

	return &config, strings.Join(warnings, "; "), nil
}

func applyEnv(config *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.Database = ParseDatabaseURL(url)
	}
	if dsn := os.Getenv("NUTRIBOT_DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if dbType := os.Getenv("NUTRIBOT_DATABASE_TYPE"); dbType != "" {
		config.Database.Type = dbType
	}
	if port := os.Getenv("NUTRIBOT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if password := os.Getenv("NUTRIBOT_ADMIN_PASSWORD"); password != "" {
		config.Admin.Password = password
	}
	if debug := os.Getenv("NUTRIBOT_DEBUG"); debug != "" {
		config.Debug = (debug == "true")
	}
	if provider := os.Getenv("NUTRIBOT_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if model := os.Getenv("NUTRIBOT_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		config.Redis.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		config.Redis.Password = password
	}
}

func envCredentials() []Credential {
	var creds []Credential
	for _, env := range credentialEnv {
		if key := strings.TrimSpace(os.Getenv(env.Key)); key != "" {
			creds = append(creds, Credential{Key: key, Label: env.Label})
		}
	}
	return creds
}

// mergeCredentials keeps environment keys first, then appends file keys that are not duplicates.
func mergeCredentials(fromEnv, fromFile []Credential) []Credential {
	seen := make(map[string]bool, len(fromEnv)+len(fromFile))
	merged := make([]Credential, 0, len(fromEnv)+len(fromFile))
	for _, c := range fromEnv {
		seen[c.Key] = true
		merged = append(merged, c)
	}
	for i, c := range fromFile {
		c.Key = strings.TrimSpace(c.Key)
		if c.Key == "" || seen[c.Key] {
			continue
		}
		if c.Label == "" {
			c.Label = fmt.Sprintf("key_%d", i+1)
		}
		seen[c.Key] = true
		merged = append(merged, c)
	}
	return merged
}

// ParseDatabaseURL maps a DATABASE_URL value to a driver type and DSN.
// sqlite URLs may use the "sqlite:///path" form; anything without a known scheme is treated as a sqlite path.
func ParseDatabaseURL(url string) DatabaseConfig {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DatabaseConfig{Type: "postgres", DSN: url}
	case strings.HasPrefix(url, "mysql://"):
		return DatabaseConfig{Type: "mysql", DSN: strings.TrimPrefix(url, "mysql://")}
	case strings.HasPrefix(url, "sqlite:///"):
		return DatabaseConfig{Type: "sqlite", DSN: strings.TrimPrefix(url, "sqlite:///")}
	case strings.HasPrefix(url, "sqlite://"):
		return DatabaseConfig{Type: "sqlite", DSN: strings.TrimPrefix(url, "sqlite://")}
	default:
		return DatabaseConfig{Type: "sqlite", DSN: url}
	}
}
