package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	JWT       JWTConfig       `envconfig:"JWT"`
	Storage   StorageConfig   `envconfig:"STORAGE"`
	Groq      GroqConfig      `envconfig:"GROQ"`
	Analysis  AnalysisConfig  `envconfig:"ANALYSIS"`
	WebSocket WebSocketConfig `envconfig:"WS"`
	Profile   ProfileConfig   `envconfig:"PROFILE"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string        `default:"8080"`
	Host            string        `default:"0.0.0.0"`
	Environment     string        `default:"development"`
	AllowedOrigins  []string      `split_words:"true" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `default:"localhost"`
	Port        string `default:"5432"`
	User        string `default:"postgres"`
	Password    string `default:"postgres"`
	Name        string `default:"meetcore"`
	SSLMode     string `split_words:"true" default:"disable"`
	MaxConns    int    `split_words:"true" default:"25"`
	MinConns    int    `split_words:"true" default:"5"`
	AutoMigrate bool   `split_words:"true" default:"true"`
}

// RedisConfig holds Redis configuration. When disabled, profiles are cached in process memory.
type RedisConfig struct {
	Enabled    bool          `default:"false"`
	Host       string        `default:"localhost"`
	Port       string        `default:"6379"`
	Password   string
	DB         int           `default:"0"`
	ProfileTTL time.Duration `split_words:"true" default:"10m"`
}

// JWTConfig holds identity token configuration.
// When Enabled is false the websocket trusts the userId carried by join-room.
type JWTConfig struct {
	Enabled      bool          `default:"false"`
	AccessSecret string        `split_words:"true" default:"your-access-secret-change-in-production"`
	AccessExpiry time.Duration `split_words:"true" default:"15m"`
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	Type            string `default:"local"` // "minio" or "local"
	Endpoint        string `default:"localhost:9000"`
	AccessKeyID     string `split_words:"true" default:"minioadmin"`
	SecretAccessKey string `split_words:"true" default:"minioadmin"`
	BucketName      string `split_words:"true" default:"meetcore"`
	UseSSL          bool   `split_words:"true" default:"false"`
	LocalDir        string `split_words:"true" default:"./data/artifacts"`
	MaxRetries      uint64 `split_words:"true" default:"3"`
}

// GroqConfig holds summarization provider configuration
type GroqConfig struct {
	APIKey  string        `split_words:"true"`
	BaseURL string        `split_words:"true" default:"https://api.groq.com"`
	Model   string        `default:"llama-3.3-70b-versatile"`
	Timeout time.Duration `default:"30s"`
}

// AnalysisConfig holds analysis pipeline configuration
type AnalysisConfig struct {
	SummarizerTimeout  time.Duration `split_words:"true" default:"20s"`
	LiveTimeout        time.Duration `split_words:"true" default:"5s"`
	LiveEvery          int           `split_words:"true" default:"10"`
	LiveWindow         int           `split_words:"true" default:"12"`
	PipelineTimeout    time.Duration `split_words:"true" default:"2m"`
	ChatHistoryLimit   int           `split_words:"true" default:"50"`
	DrainRetryInterval time.Duration `split_words:"true" default:"5s"`
	DrainRetries       uint64        `split_words:"true" default:"6"`
}

// WebSocketConfig holds websocket transport configuration
type WebSocketConfig struct {
	ReadLimit  int64         `split_words:"true" default:"65536"`
	WriteWait  time.Duration `split_words:"true" default:"10s"`
	PongWait   time.Duration `split_words:"true" default:"60s"`
	PingPeriod time.Duration `split_words:"true" default:"54s"`
	SendBuffer int           `split_words:"true" default:"256"`
}

// ProfileConfig holds placeholder profile configuration
type ProfileConfig struct {
	AvatarBaseURL string `split_words:"true" default:"https://api.dicebear.com/7.x/identicon/svg?seed="`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "minio", "local":
	default:
		return fmt.Errorf("STORAGE_TYPE must be minio or local, got %q", c.Storage.Type)
	}
	if c.JWT.Enabled && c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required when JWT_ENABLED is true")
	}
	if c.Analysis.SummarizerTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_SUMMARIZER_TIMEOUT must be positive")
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("WS_PING_PERIOD must be shorter than WS_PONG_WAIT")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
