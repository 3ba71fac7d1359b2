package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort      string
	AppEnv       string
	GinMode      string
	LogLevel     string
	ExposeErrors bool

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	SessionStore  string
	SessionName   string
	SessionSecret string
	RedisHost     string
	RedisPort     string
	RedisPassword string

	AllowedOrigins []string
	BcryptCost     int

	UserUploadDir   string
	ReportUploadDir string
	AvatarWidth     int
	AvatarHeight    int
	MaxAvatarSize   int64
	MaxDocumentSize int64
	SweepMaxAge     time.Duration

	OTPTTL     time.Duration
	MailDriver string
	MailFrom   string
	AWSRegion  string
}

func Load() *Config {
	return &Config{
		AppPort:      getEnv("APP_PORT", "8080"),
		AppEnv:       getEnv("APP_ENV", "development"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ExposeErrors: getEnvAsBool("EXPOSE_ERRORS", false),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "timesheet"),
		DBPassword: getEnv("DB_PASSWORD", "timesheet"),
		DBName:     getEnv("DB_NAME", "timesheet"),

		SessionStore:  getEnv("SESSION_STORE", "redis"),
		SessionName:   getEnv("SESSION_NAME", "timesheet_session"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		BcryptCost:     getEnvAsInt("BCRYPT_COST", 10),

		UserUploadDir:   getEnv("USER_UPLOAD_DIR", "useruploads"),
		ReportUploadDir: getEnv("REPORT_UPLOAD_DIR", "reportdocuploads"),
		AvatarWidth:     getEnvAsInt("AVATAR_WIDTH", 300),
		AvatarHeight:    getEnvAsInt("AVATAR_HEIGHT", 300),
		MaxAvatarSize:   int64(getEnvAsInt("MAX_AVATAR_SIZE", 5<<20)),
		MaxDocumentSize: int64(getEnvAsInt("MAX_DOCUMENT_SIZE", 5<<20)),
		SweepMaxAge:     getEnvAsDuration("SWEEP_MAX_AGE", 24*time.Hour),

		OTPTTL:     getEnvAsDuration("OTP_TTL", 10*time.Minute),
		MailDriver: getEnv("MAIL_DRIVER", "log"),
		MailFrom:   getEnv("MAIL_FROM", "no-reply@example.com"),
		AWSRegion:  getEnv("AWS_REGION", "ap-south-1"),
	}
}

// IsProduction reports whether cookies should be marked secure.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release" || c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
