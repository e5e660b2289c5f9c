package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	SecureCookie   bool
}

// LLMConfig selects and configures the itinerary text generator.
type LLMConfig struct {
	Provider     string // gemini or groq
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	GroqBaseURL  string
	Temperature  float32
	MaxTokens    int
	Timeout      time.Duration
}

// APIKey returns the credential of the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == ProviderGroq {
		return c.GroqAPIKey
	}
	return c.GeminiAPIKey
}

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

type UsageConfig struct {
	MaxAnonymousTrips int
}

// RateLimitConfig bounds how often one client may call the generator.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type ObservabilityConfig struct {
	ServiceName  string
	MetricsAddr  string
	PprofAddr    string
	OTLPEndpoint string
}

type Config struct {
	Repositories   RepositoriesConfig
	ServerPort     string
	Mode           string
	LogLevel       string
	JWT            JWTConfig
	LLM            LLMConfig
	Usage          UsageConfig
	RateLimit      RateLimitConfig
	Observability  ObservabilityConfig
	StatsCacheTTL  time.Duration
	CORSOrigins    []string
	TrustedProxies []string
}

// IsDevelopment reports whether the service runs with relaxed secret checks.
func (c *Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "development"
}

func Load() (*Config, error) {
	var errs []string

	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "voyage"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: int32(getIntOrDefault("POSTGRES_MAX_CONNS", 20, &errs)),
				MinConns: int32(getIntOrDefault("POSTGRES_MIN_CONNS", 2, &errs)),
			},
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8091"),
		Mode:       getEnvOrDefault("APP_MODE", "development"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		JWT: JWTConfig{
			SecretKey:      os.Getenv("JWT_SECRET_KEY"),
			AccessTokenTTL: getDurationOrDefault("JWT_ACCESS_TTL", 7*24*time.Hour, &errs),
			Issuer:         getEnvOrDefault("JWT_ISSUER", "voyage"),
			Audience:       getEnvOrDefault("JWT_AUDIENCE", "voyage-web"),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGemini)),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
			GroqModel:    getEnvOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
			GroqBaseURL:  getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Temperature:  float32(getFloatOrDefault("LLM_TEMPERATURE", 0.7, &errs)),
			MaxTokens:    getIntOrDefault("LLM_MAX_TOKENS", 4000, &errs),
			Timeout:      getDurationOrDefault("LLM_TIMEOUT", 60*time.Second, &errs),
		},
		Usage: UsageConfig{
			MaxAnonymousTrips: getIntOrDefault("MAX_ANONYMOUS_TRIPS", 3, &errs),
		},
		RateLimit: RateLimitConfig{
			Requests: getIntOrDefault("GENERATE_RATE_LIMIT", 5, &errs),
			Window:   getDurationOrDefault("GENERATE_RATE_WINDOW", time.Minute, &errs),
		},
		Observability: ObservabilityConfig{
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "voyage"),
			MetricsAddr:  getEnvOrDefault("METRICS_ADDR", ":9092"),
			PprofAddr:    getEnvOrDefault("PPROF_ADDR", ":6060"),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318"),
		},
		StatsCacheTTL:  getDurationOrDefault("ADMIN_STATS_CACHE_TTL", time.Minute, &errs),
		CORSOrigins:    getListOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		TrustedProxies: getListOrDefault("TRUSTED_PROXIES", []string{"127.0.0.1", "::1"}),
	}
	cfg.JWT.SecureCookie = !cfg.IsDevelopment()

	if cfg.Repositories.Postgres.Password == "" {
		errs = append(errs, "POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.JWT.SecretKey == "" {
		if cfg.IsDevelopment() {
			cfg.JWT.SecretKey = "development-secret-key-change-me-in-production"
		} else {
			errs = append(errs, "JWT_SECRET_KEY environment variable is required")
		}
	} else if len(cfg.JWT.SecretKey) < 32 && !cfg.IsDevelopment() {
		errs = append(errs, "JWT_SECRET_KEY must be at least 32 characters")
	}
	if cfg.LLM.Provider != ProviderGemini && cfg.LLM.Provider != ProviderGroq {
		errs = append(errs, fmt.Sprintf("LLM_PROVIDER %q is not one of gemini, groq", cfg.LLM.Provider))
	}
	for _, proxy := range cfg.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not an IP address or CIDR", proxy))
		}
	}
	if cfg.Usage.MaxAnonymousTrips < 0 {
		errs = append(errs, "MAX_ANONYMOUS_TRIPS must not be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int, errs *[]string) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer", key))
		return defaultValue
	}
	return v
}

func getFloatOrDefault(key string, defaultValue float64, errs *[]string) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a number", key))
		return defaultValue
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration, errs *[]string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a duration such as 30s", key))
		return defaultValue
	}
	return v
}

func getListOrDefault(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}
