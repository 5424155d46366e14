package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds everything the process needs. It is loaded once at startup,
// validated once, and never mutated afterwards.
type Config struct {
	App struct {
		Env         string
		Port        string
		FrontendURL string
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	JWT struct {
		AccessTokenSecret string
	}
	Engine struct {
		LockSweepInterval time.Duration // how often open rounds are checked against their deadline
		FeedPollInterval  time.Duration // how often locked rounds are retried against the results feed
	}
	Feed struct {
		BaseURL string
		APIKey  string
	}
}

var (
	appConfig *Config
	once      sync.Once
)

// Load reads configuration from the environment (optionally a .env file)
// exactly once and validates it. Subsequent calls return the same instance.
func Load() (*Config, error) {
	var loadErr error
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, relying on system environment variables.")
		}

		cfg := &Config{}

		cfg.App.Env = getEnv("APP_ENV", "development")
		cfg.App.Port = getEnv("PORT", "8090")
		cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

		cfg.DB.Host = getEnv("DB_HOST", "localhost")
		cfg.DB.Port = getEnv("DB_PORT", "5432")
		cfg.DB.User = getEnv("DB_USER", "postgres")
		cfg.DB.Password = getEnv("DB_PASSWORD", "password")
		cfg.DB.Name = getEnv("DB_NAME", "lastman_db")
		cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

		cfg.JWT.AccessTokenSecret = getEnv("JWT_ACCESS_TOKEN_SECRET", "")

		lockSweepSecs, err := getEnvAsInt("ENGINE_LOCK_SWEEP_SECONDS", 60)
		if err != nil {
			loadErr = err
			return
		}
		feedPollSecs, err := getEnvAsInt("ENGINE_FEED_POLL_SECONDS", 120)
		if err != nil {
			loadErr = err
			return
		}
		cfg.Engine.LockSweepInterval = time.Duration(lockSweepSecs) * time.Second
		cfg.Engine.FeedPollInterval = time.Duration(feedPollSecs) * time.Second

		cfg.Feed.BaseURL = getEnv("FEED_BASE_URL", "")
		cfg.Feed.APIKey = getEnv("FEED_API_KEY", "")

		if err := cfg.Validate(); err != nil {
			loadErr = err
			return
		}
		appConfig = cfg
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return appConfig, nil
}

// Validate checks the loaded values for anything the process cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.JWT.AccessTokenSecret == "" {
		problems = append(problems, "JWT_ACCESS_TOKEN_SECRET is required")
	}
	if c.Engine.LockSweepInterval <= 0 {
		problems = append(problems, "ENGINE_LOCK_SWEEP_SECONDS must be positive")
	}
	if c.Engine.FeedPollInterval <= 0 {
		problems = append(problems, "ENGINE_FEED_POLL_SECONDS must be positive")
	}
	if c.App.Env == "production" && c.DB.Password == "password" {
		problems = append(problems, "default DB_PASSWORD is not allowed in production")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ConnectDB opens the postgres connection described by the config.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DB.Host,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Name,
		cfg.DB.Port,
		cfg.DB.SSLMode,
	)

	gormConfig := &gorm.Config{}
	if cfg.App.Env == "development" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Successfully connected to database")
	return db, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected integer, got '%s'", key, valueStr)
	}
	return value, nil
}
