package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultPort = "8080"

// Settings is read once by the entry point and handed to every constructor.
type Settings struct {
	Port        string
	Environment string

	DBDriver           string
	DBUser             string
	DBPassword         string
	DBHost             string
	DBPort             string
	DBName             string
	DBSqlitePath       string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	DBConnMaxIdleTime  time.Duration
	SkipMigrations     bool
	RedisAddress       string
	RedisPassword      string
	RightsCacheTTL     time.Duration
	ApiSecret          string
	TokenLifespan      time.Duration
	CorsAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitMax       int64
	RateLimitWindow    time.Duration
	LogLevel           string

	EventPublisher        string
	PubSubProjectId       string
	PubSubTopic           string
	PubSubCredentialsJSON string
	KafkaBrokers          []string
	KafkaTopic            string

	StorageProvider    string
	UploadDir          string
	GCSBucket          string
	GCSCredentialsJSON string

	Policy Policy
}

// LoadSettings reads .env (if present) and the process environment.
func LoadSettings() Settings {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	return Settings{
		Port:        port,
		Environment: strings.ToLower(strings.TrimSpace(os.Getenv("GO_ENV"))),

		DBDriver:          strings.ToLower(stringFromEnv("DB_DRIVER", DriverMySQL)),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            stringFromEnv("DB_PORT", "3306"),
		DBName:            os.Getenv("DB_NAME"),
		DBSqlitePath:      stringFromEnv("DB_SQLITE_PATH", "bakery.db"),
		DBMaxOpenConns:    intFromEnv("DB_MAX_OPEN_CONNS", 50),
		DBMaxIdleConns:    intFromEnv("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		DBConnMaxIdleTime: time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
		SkipMigrations:    boolFromEnv("SKIP_MIGRATIONS"),

		RedisAddress:   os.Getenv("REDIS_ADDRESS"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RightsCacheTTL: time.Duration(intFromEnv("RIGHTS_CACHE_SECONDS", 3600)) * time.Second,

		ApiSecret:          stringFromEnv("API_SECRET", "SweetBooking-Secret"),
		TokenLifespan:      time.Duration(intFromEnv("TOKEN_HOUR_LIFESPAN", 24)) * time.Hour,
		CorsAllowedOrigins: SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		RateLimitEnabled:   boolFromEnv("RATE_LIMIT_ENABLED"),
		RateLimitMax:       int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)),
		RateLimitWindow:    time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		LogLevel:           stringFromEnv("LOG_LEVEL", "info"),

		EventPublisher:        strings.ToLower(stringFromEnv("EVENT_PUBLISHER", PublisherLog)),
		PubSubProjectId:       pubSubProjectId(),
		PubSubTopic:           stringFromEnv("PUBSUB_TOPIC", "bakery-events"),
		PubSubCredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),
		KafkaBrokers:          SplitAndTrim(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:            stringFromEnv("KAFKA_TOPIC", "bakery-events"),

		StorageProvider:    strings.ToLower(stringFromEnv("STORAGE_PROVIDER", StorageProviderLocal)),
		UploadDir:          stringFromEnv("UPLOAD_DIR", "public/uploads"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		GCSCredentialsJSON: os.Getenv("GCS_CREDENTIALS_JSON"),

		Policy: LoadPolicy(),
	}
}

func (s Settings) IsProduction() bool {
	return s.Environment == "production"
}

func pubSubProjectId() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	return os.Getenv("GCP_PROJECT")
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
