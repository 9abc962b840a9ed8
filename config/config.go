package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Redis       RedisConfig
	Log         LogConfig
	Payment     PaymentConfig
	Webhook     WebhookConfig
	Payout      PayoutConfig
	Commission  CommissionConfig
	Reservation ReservationConfig
	Ops         OpsConfig
	S3          S3Config
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// SlowQuery logs statements slower than this at warn level; 0 disables.
	SlowQuery time.Duration
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// IdempotencyTTL is how long a cached response for an Idempotency-Key is replayed.
	IdempotencyTTL time.Duration
}

type LogConfig struct {
	Level     string
	Format    string
	File      string
	MaxSizeMB int
}

type PaymentConfig struct {
	Monnify MonnifyConfig
}

type MonnifyConfig struct {
	APIKey       string
	APISecret    string
	ContractCode string
	Sandbox      bool
	BaseURL      string
	RedirectURL  string
	Timeout      time.Duration
}

type WebhookConfig struct {
	Secret       string
	Algorithm    string
	MaxAge       time.Duration
	Retention    time.Duration
	MaxBodyBytes int64
}

type PayoutConfig struct {
	AutoPayout      bool
	DefaultProvider string
}

type CommissionConfig struct {
	// MinimumVerificationFee is in kobo. COMMISSION_MINIMUM_FEE is read in naira.
	MinimumVerificationFee int64
}

const koboPerNaira = 100

type ReservationConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

type OpsConfig struct {
	PendingPayoutThreshold    int64
	HeldVerificationThreshold int64
	PendingAgeHours           int
	ReportPrefix              string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	sandbox := getEnvBool("MONNIFY_SANDBOX", true)
	apiSecret := getEnv("MONNIFY_API_SECRET", "")

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "garka"),
			Password: getEnv("DB_PASSWORD", "garka"),
			DBName:   getEnv("DB_NAME", "garka"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: parseDuration(getEnv("DB_CONN_MAX_LIFETIME", "1h"), time.Hour),
			SlowQuery:       parseDuration(getEnv("DB_SLOW_QUERY", "500ms"), 500*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", ""),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			IdempotencyTTL: parseDuration(getEnv("IDEMPOTENCY_TTL", "24h"), 24*time.Hour),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "console"),
			File:      getEnv("LOG_FILE", ""),
			MaxSizeMB: getEnvInt("LOG_MAX_SIZE_MB", 100),
		},
		Payment: PaymentConfig{
			Monnify: MonnifyConfig{
				APIKey:       getEnv("MONNIFY_API_KEY", ""),
				APISecret:    apiSecret,
				ContractCode: getEnv("MONNIFY_CONTRACT_CODE", ""),
				Sandbox:      sandbox,
				BaseURL:      getEnv("MONNIFY_BASE_URL", monnifyBaseURL(sandbox)),
				RedirectURL:  getEnv("MONNIFY_REDIRECT_URL", "http://localhost:3000/payments/complete"),
				Timeout:      parseDuration(getEnv("MONNIFY_TIMEOUT", "30s"), 30*time.Second),
			},
		},
		Webhook: WebhookConfig{
			// the API secret doubles as the webhook secret unless one is set explicitly
			Secret:       getEnv("MONNIFY_WEBHOOK_SECRET", apiSecret),
			Algorithm:    strings.ToLower(getEnv("MONNIFY_WEBHOOK_ALGO", "sha512")),
			MaxAge:       time.Duration(getEnvInt("MONNIFY_WEBHOOK_MAX_AGE_SECONDS", 86400)) * time.Second,
			Retention:    parseDuration(getEnv("WEBHOOK_EVENT_RETENTION", "168h"), 168*time.Hour),
			MaxBodyBytes: int64(getEnvInt("WEBHOOK_MAX_BODY_BYTES", 1<<20)),
		},
		Payout: PayoutConfig{
			AutoPayout:      getEnvBool("MONNIFY_AUTO_PAYOUT", false),
			DefaultProvider: getEnv("DEFAULT_PAYOUT_PROVIDER", "STRIPE"),
		},
		Commission: CommissionConfig{
			MinimumVerificationFee: int64(getEnvInt("COMMISSION_MINIMUM_FEE", 5000)) * koboPerNaira,
		},
		Reservation: ReservationConfig{
			TTL:           parseDuration(getEnv("RESERVATION_TTL", "72h"), 72*time.Hour),
			SweepInterval: parseDuration(getEnv("RESERVATION_SWEEP_INTERVAL", "60s"), time.Minute),
		},
		Ops: OpsConfig{
			PendingPayoutThreshold:    int64(getEnvInt("OPS_PENDING_PAYOUT_THRESHOLD", 5)),
			HeldVerificationThreshold: int64(getEnvInt("OPS_HELD_VERIFICATION_THRESHOLD", 10)),
			PendingAgeHours:           getEnvInt("OPS_PENDING_AGE_HOURS", 24),
			ReportPrefix:              getEnv("OPS_REPORT_PREFIX", "ops-reports/"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			Bucket:          getEnv("OPS_REPORT_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
	}

	if config.Webhook.Algorithm != "sha512" && config.Webhook.Algorithm != "sha256" {
		return nil, fmt.Errorf("unsupported MONNIFY_WEBHOOK_ALGO %q", config.Webhook.Algorithm)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Addr returns host:port, or "" when redis is not configured.
func (c *RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	return c.Host + ":" + c.Port
}

func monnifyBaseURL(sandbox bool) string {
	if sandbox {
		return "https://sandbox.monnify.co"
	}
	return "https://api.monnify.com"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid boolean for %s=%q, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
