package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Caller authentication. When AuthSecret is empty the API trusts the
	// X-Caller-ID header, which is only acceptable behind a gateway.
	AuthSecret         string
	CORSAllowedOrigins []string

	// Object storage for rehosted media. When Bucket is empty, hosting
	// falls back to the local filesystem store.
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string
	S3PublicBaseURL string
	StoragePath     string
	HostingDisabled bool

	// Deployment-wide vendor fallbacks. Only vendors known to support a
	// shared default key honor these.
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiBaseURL  string
	GatewayBaseURL string
	GatewayAPIKey  string

	VendorTimeout    time.Duration
	SharedCooldown   time.Duration
	HeartbeatPeriod  time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AuthSecret:         os.Getenv("AUTH_SECRET"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:   os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:     os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		StoragePath:     getEnv("STORAGE_PATH", "./data/assets"),
		HostingDisabled: getEnvBool("ASSET_HOSTING_DISABLED", false),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GatewayBaseURL: os.Getenv("GATEWAY_BASE_URL"),
		GatewayAPIKey:  os.Getenv("GATEWAY_API_KEY"),

		VendorTimeout:    time.Second * time.Duration(getEnvInt("VENDOR_TIMEOUT_SECONDS", 120)),
		SharedCooldown:   time.Minute * time.Duration(getEnvInt("SHARED_COOLDOWN_MINUTES", 10)),
		HeartbeatPeriod:  time.Second * time.Duration(getEnvInt("SSE_HEARTBEAT_SECONDS", 15)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
