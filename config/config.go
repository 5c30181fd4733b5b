package config

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	// MinSecretLength is the minimum required length for token signing secrets in production
	MinSecretLength = 32
	// DefaultAuditRetentionDays is how long audit rows are kept before the retention sweep removes them
	DefaultAuditRetentionDays = 90
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	LogLevel    string
	Timezone    string
	UploadDir   string
	AppURL      string
	// Turso (remote libsql)
	TursoDatabaseURL string
	TursoAuthToken   string
	// Credentials
	JWTSecret             string
	JWTRefreshSecret      string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged instead of sent
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	// Documents
	ChromePath string
	// Scheduled jobs
	AuditRetentionDays int
	ReportRecipients   []string
	AllowedOrigins     []string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	jwtSecret := getEnv("JWT_SECRET", "")
	ValidateSecret("JWT_SECRET", jwtSecret, environment)
	if jwtSecret == "" && environment != "production" {
		jwtSecret = GenerateSecureSecret()
		log.Println("[INFO] Generated temporary JWT secret for development. Set JWT_SECRET env var for persistence.")
	}

	refreshSecret := getEnv("JWT_REFRESH_SECRET", "")
	ValidateSecret("JWT_REFRESH_SECRET", refreshSecret, environment)
	if refreshSecret == "" && environment != "production" {
		refreshSecret = GenerateSecureSecret()
	}

	return &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		DBPath:                getEnv("DB_PATH", "db/justice.db"),
		Environment:           environment,
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		Timezone:              getEnv("TIMEZONE", "Africa/Douala"),
		UploadDir:             getEnv("UPLOAD_DIR", "data/vault"),
		AppURL:                getEnv("APP_URL", "http://localhost:8080"),
		TursoDatabaseURL:      getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:        getEnv("TURSO_AUTH_TOKEN", ""),
		JWTSecret:             jwtSecret,
		JWTRefreshSecret:      refreshSecret,
		AccessTokenTTLMinutes: getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 15),
		RefreshTokenTTLHours:  getEnvInt("REFRESH_TOKEN_TTL_HOURS", 24*7),
		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		EmailFrom:             getEnv("EMAIL_FROM", "noreply@justice.gov"),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Justice Flow"),
		EmailTestMode:         getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		R2AccountID:           getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:         getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:     getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:          getEnv("R2_BUCKET_NAME", ""),
		ChromePath:            getEnv("CHROME_PATH", ""),
		AuditRetentionDays:    getEnvInt("AUDIT_RETENTION_DAYS", DefaultAuditRetentionDays),
		ReportRecipients:      splitList(getEnv("REPORT_RECIPIENTS", "")),
		AllowedOrigins:        splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

// IsProduction reports whether internal error details must be withheld from callers
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasObjectStorage reports whether every R2 credential is set
func (c *Config) HasObjectStorage() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// IsDevelopment reports whether the development-only surfaces are enabled
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Using default value for %s", key)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("[WARNING] Invalid value for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateSecret validates a signing secret meets security requirements.
// In production it must be at least MinSecretLength bytes and not a known insecure default.
func ValidateSecret(name, secret, environment string) {
	insecureDefaults := []string{
		"dev-secret-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			if environment == "production" {
				log.Fatalf("[CRITICAL] %s is set to an insecure default value. Generate one with: openssl rand -base64 32", name)
			}
			if secret != "" {
				log.Printf("[WARNING] %s is set to an insecure default value. This is acceptable only in development.", name)
			}
			return
		}
	}

	if environment == "production" && len(secret) < MinSecretLength {
		log.Fatalf("[CRITICAL] %s must be at least %d characters in production (current: %d)", name, MinSecretLength, len(secret))
	}
}

// GenerateSecureSecret generates a cryptographically secure random secret
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Printf("[WARNING] Failed to generate secure secret: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
