package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// AllowedOrigins lists CORS origins; an entry ending in * matches by prefix.
	AllowedOrigins []string

	SourceBaseURL string
	FetchMode     string
	ChromeBin     string
	HTTPTimeout   time.Duration

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int

	Storage          string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	Locker    string
	RedisAddr string
	LockTTL   time.Duration

	RawCSVPath string
}

var defaults = map[string]any{
	"APP_ENV":   "development",
	"LOG_LEVEL": "debug",
	"HTTP_ADDR": ":8000",

	"ALLOWED_ORIGINS": "*",

	"SOURCE_BASE_URL":  "https://www.euro.com.pl",
	"FETCH_MODE":       "http",
	"CHROME_BIN":       "",
	"HTTP_TIMEOUT_SEC": 30,

	"MAX_CONCURRENCY": 4,
	"RATE_LIMIT_MS":   250,
	"MAX_RETRIES":     3,

	"STORAGE":           "memory",
	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "etl",
	"POSTGRES_PASSWORD": "etl",
	"POSTGRES_DB":       "opinions",
	"POSTGRES_SSLMODE":  "disable",

	"LOCKER":       "local",
	"REDIS_ADDR":   "localhost:6379",
	"LOCK_TTL_SEC": 30,

	"RAW_CSV_PATH": "./output/raw_opinions.csv",
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	cfg := &Config{
		AppEnv:   strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		HTTPAddr: v.GetString("HTTP_ADDR"),

		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		SourceBaseURL: strings.TrimRight(v.GetString("SOURCE_BASE_URL"), "/"),
		FetchMode:     strings.ToLower(v.GetString("FETCH_MODE")),
		ChromeBin:     v.GetString("CHROME_BIN"),
		HTTPTimeout:   time.Duration(v.GetInt("HTTP_TIMEOUT_SEC")) * time.Second,

		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),
		RateLimitMs:    v.GetInt("RATE_LIMIT_MS"),
		MaxRetries:     v.GetInt("MAX_RETRIES"),

		Storage:          strings.ToLower(v.GetString("STORAGE")),
		PostgresHost:     v.GetString("POSTGRES_HOST"),
		PostgresPort:     v.GetString("POSTGRES_PORT"),
		PostgresUser:     v.GetString("POSTGRES_USER"),
		PostgresPassword: v.GetString("POSTGRES_PASSWORD"),
		PostgresDB:       v.GetString("POSTGRES_DB"),
		PostgresSSLMode:  v.GetString("POSTGRES_SSLMODE"),

		Locker:    strings.ToLower(v.GetString("LOCKER")),
		RedisAddr: v.GetString("REDIS_ADDR"),
		LockTTL:   time.Duration(v.GetInt("LOCK_TTL_SEC")) * time.Second,

		RawCSVPath: v.GetString("RAW_CSV_PATH"),
	}

	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return cfg
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// IsProduction reports whether the process runs with production logging and gin release mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
