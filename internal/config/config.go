package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Jobs     JobsConfig
	Fetch    FetchConfig
	Refresh  RefreshConfig
	Cache    CacheConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds the admin token settings
type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// JobsConfig controls the job queue and the worker pool that drains it.
type JobsConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// QueuedTimeout is how long a claimed job may stay queued before another worker may reclaim it.
	QueuedTimeout time.Duration
	ClaimBatch    int
	Concurrency   int
	PollInterval  time.Duration
}

// FetchConfig holds outbound metadata fetch settings
type FetchConfig struct {
	Timeout            time.Duration
	MaxBodyBytes       int64
	RequestsPerSecond  float64
	Burst              int
	IPFSGateway        string
	ArweaveGateway     string
	HostPenaltyDefault time.Duration
	UserAgent          string
}

// RefreshConfig holds the dynamic token sweep settings
type RefreshConfig struct {
	DynamicDefaultTTL time.Duration
	SweepInterval     time.Duration
	// MaxContractTokenCount caps the tokens a contract may declare or mint.
	MaxContractTokenCount int64
}

// CacheConfig holds HTTP cache settings
type CacheConfig struct {
	EtagTTL time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "3000"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "token_metadata"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 20),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),
		},
		Jobs: JobsConfig{
			MaxRetries:     getEnvAsInt("JOB_MAX_RETRIES", 10),
			RetryBaseDelay: getEnvAsDuration("JOB_RETRY_BASE_DELAY", 30*time.Second),
			RetryMaxDelay:  getEnvAsDuration("JOB_RETRY_MAX_DELAY", 6*time.Hour),
			QueuedTimeout:  getEnvAsDuration("JOB_QUEUED_TIMEOUT", 10*time.Minute),
			ClaimBatch:     getEnvAsInt("JOB_CLAIM_BATCH", 25),
			Concurrency:    getEnvAsInt("WORKER_CONCURRENCY", 5),
			PollInterval:   getEnvAsDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		},
		Fetch: FetchConfig{
			Timeout:            getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
			MaxBodyBytes:       int64(getEnvAsInt("FETCH_MAX_BODY_BYTES", 1<<20)),
			RequestsPerSecond:  getEnvAsFloat("FETCH_RPS", 20),
			Burst:              getEnvAsInt("FETCH_BURST", 10),
			IPFSGateway:        getEnv("IPFS_GATEWAY", "https://cloudflare-ipfs.com"),
			ArweaveGateway:     getEnv("ARWEAVE_GATEWAY", "https://arweave.net"),
			HostPenaltyDefault: getEnvAsDuration("HOST_PENALTY_DEFAULT", time.Minute),
			UserAgent:          getEnv("FETCH_USER_AGENT", "token-metadata-service"),
		},
		Refresh: RefreshConfig{
			DynamicDefaultTTL: getEnvAsDuration("DYNAMIC_DEFAULT_TTL", 24*time.Hour),
			SweepInterval:     getEnvAsDuration("DYNAMIC_SWEEP_INTERVAL", 5*time.Minute),

			MaxContractTokenCount: int64(getEnvAsInt("MAX_CONTRACT_TOKEN_COUNT", 100_000)),
		},
		Cache: CacheConfig{
			EtagTTL: getEnvAsDuration("ETAG_CACHE_TTL", 30*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
