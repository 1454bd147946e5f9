package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Pipeline PipelineConfig
	Review   ReviewConfig
	Solana   SolanaConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-level settings
type AppConfig struct {
	JWTSecret string
}

// PipelineConfig holds the prediction-pipeline tuning knobs
type PipelineConfig struct {
	MinHoursBeforeEvent     int     // close must precede an event by at least this
	DefaultCloseBufferHours int     // parser places close this far before the deadline
	MaxDaysUntilClose       int     // warn when close is further out than this
	DefaultWindowDays       int     // deadline when the prediction names none
	MinCallsForRanking      int     // leaderboard eligibility and Bayesian prior
	ConfidenceDecayFactor   float64 // recency weighting for accuracy
	DefaultBetAmount        string  // wager when the caller specifies none
}

// ReviewConfig holds external review API settings
type ReviewConfig struct {
	ValidateURL string
}

// SolanaConfig holds on-chain settlement settings
type SolanaConfig struct {
	RPCEndpoint      string
	WalletPrivateKey string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "calls_tracker"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Pipeline: PipelineConfig{
			MinHoursBeforeEvent:     getEnvInt("MIN_HOURS_BEFORE_EVENT", 24),
			DefaultCloseBufferHours: getEnvInt("DEFAULT_CLOSE_BUFFER_HOURS", 48),
			MaxDaysUntilClose:       getEnvInt("MAX_DAYS_UNTIL_CLOSE", 14),
			DefaultWindowDays:       getEnvInt("DEFAULT_WINDOW_DAYS", 30),
			MinCallsForRanking:      getEnvInt("MIN_CALLS_FOR_RANKING", 3),
			ConfidenceDecayFactor:   getEnvFloat("CONFIDENCE_DECAY_FACTOR", 0.95),
			DefaultBetAmount:        getEnv("DEFAULT_BET_AMOUNT", "0.1"),
		},
		Review: ReviewConfig{
			ValidateURL: getEnv("REVIEW_VALIDATE_URL", ""),
		},
		Solana: SolanaConfig{
			RPCEndpoint:      getEnv("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com"),
			WalletPrivateKey: getEnv("SOLANA_WALLET_PRIVATE_KEY", ""),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
