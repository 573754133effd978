package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	AWS          AWSConfig
	Email        EmailConfig
	RabbitMQ     RabbitMQConfig
	Telegram     TelegramConfig
	Google       GoogleConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Registration RegistrationConfig
	Auth         AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins []string
	SiteURL            string // public front-end URL used in email links
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/formations?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the uploads bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	UploadsBucket        string
	PresignExpireMinutes int
}

// EmailConfig for SMTP delivery. An empty SMTPHost logs emails instead of sending them.
type EmailConfig struct {
	FromAddress  string
	FromName     string
	AdminAddress string // receives contact form notifications
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPass     string
}

// RabbitMQConfig for registration lifecycle events.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// TelegramConfig for admin alerts. An empty token disables alerts.
type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

// GoogleConfig for Google sign-in.
type GoogleConfig struct {
	ClientID string
}

// RateLimitConfig drives the Redis token bucket on public endpoints.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// CacheConfig holds in-process cache lifetimes.
type CacheConfig struct {
	OpenSessionsTTL time.Duration
}

// RegistrationConfig controls registration creation.
type RegistrationConfig struct {
	// EnforceOpenSession rejects registrations against closed or already-started sessions.
	// Off by default: creation historically performs no check at all.
	EnforceOpenSession bool
}

// AuthConfig holds account token lifetimes and two-factor settings.
type AuthConfig struct {
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	TwoFactorIssuer      string
	ChallengeTTL         time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: splitTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			SiteURL:            strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "formations"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UploadsBucket:        getEnv("AWS_S3_UPLOADS_BUCKET", "formations-uploads"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Aura Formation"),
			AdminAddress: getEnv("EMAIL_ADMIN_ADDRESS", "contact@example.com"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   getEnv("RABBITMQ_URL", ""),
			Queue: getEnv("RABBITMQ_QUEUE", "registration.confirmed"),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminChatID: getEnvInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
		},
		Google: GoogleConfig{
			ClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvBool("RATE_LIMIT_ENABLED", true),
			Capacity:       getEnvInt("RATE_LIMIT_CAPACITY", 20),
			RefillTokens:   getEnvInt("RATE_LIMIT_REFILL_TOKENS", 5),
			RefillInterval: getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", 10*time.Second),
			TTL:            getEnvDuration("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         getEnv("RATE_LIMIT_PREFIX", "rl"),
		},
		Cache: CacheConfig{
			OpenSessionsTTL: getEnvDuration("CACHE_OPEN_SESSIONS_TTL", 30*time.Second),
		},
		Registration: RegistrationConfig{
			EnforceOpenSession: getEnvBool("REGISTRATION_ENFORCE_OPEN_SESSION", false),
		},
		Auth: AuthConfig{
			VerificationTokenTTL: getEnvDuration("AUTH_VERIFICATION_TOKEN_TTL", time.Hour),
			ResetTokenTTL:        getEnvDuration("AUTH_RESET_TOKEN_TTL", time.Hour),
			TwoFactorIssuer:      getEnv("AUTH_TOTP_ISSUER", "Aura Formation"),
			ChallengeTTL:         getEnvDuration("AUTH_2FA_CHALLENGE_TTL", 5*time.Minute),
		},
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("30s", "5m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
