package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig   `json:"server"`
	Redis    RedisConfig    `json:"redis"`
	Database DatabaseConfig `json:"database"`
	Places   PlacesConfig   `json:"places"`
	Auth     AuthConfig     `json:"auth"`
	Tiers    []TierConfig   `json:"tiers"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type PlacesConfig struct {
	APIKey      string        `json:"-"`
	BaseURL     string        `json:"base_url"`
	MaxRetries  int           `json:"max_retries"`
	BackoffBase time.Duration `json:"-"`
}

type AuthConfig struct {
	JWTSecret   string `json:"-"`
	ExpiryHours int    `json:"jwt_expiry_hours"`
}

// Per-tier policy: quota, cache freshness and review cap. The defaults below
// are the product's published tiers.
type TierConfig struct {
	Name              string `json:"name"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	CacheDuration     int    `json:"cache_duration_seconds"`
	MaxReviews        int    `json:"max_reviews"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Environment: "development",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		Places: PlacesConfig{
			BaseURL:     "https://maps.googleapis.com/maps/api/place/details/json",
			MaxRetries:  3,
			BackoffBase: time.Second,
		},
		Auth: AuthConfig{
			ExpiryHours: 24,
		},
		Tiers: []TierConfig{
			{Name: "FREE", RequestsPerMinute: 10, CacheDuration: 86400, MaxReviews: 3},
			{Name: "BASIC", RequestsPerMinute: 30, CacheDuration: 43200, MaxReviews: 5},
			{Name: "PRO", RequestsPerMinute: 60, CacheDuration: 21600, MaxReviews: 7},
			{Name: "PREMIUM", RequestsPerMinute: 100, CacheDuration: 10800, MaxReviews: 10},
		},
	}
}

// Load reads the JSON config file if present, then applies environment
// overrides for secrets and deployment-specific values. A missing file is
// not an error; the defaults cover local development.
func Load(path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(file, config); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(config)

	if config.Places.BackoffBase <= 0 {
		config.Places.BackoffBase = time.Second
	}
	if config.Places.MaxRetries <= 0 {
		config.Places.MaxRetries = 3
	}

	return config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		config.Server.Environment = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		config.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			config.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("GOOGLE_PLACES_API_KEY"); v != "" {
		config.Places.APIKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// FindTier returns the policy row for a tier name, or nil if unknown.
func (c *Config) FindTier(name string) *TierConfig {
	for i := range c.Tiers {
		if c.Tiers[i].Name == name {
			return &c.Tiers[i]
		}
	}
	return nil
}
