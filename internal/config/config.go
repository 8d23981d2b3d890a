package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	HTTPPort    string
	CORSOrigins []string

	// Store: "postgres" or "memory"
	StoreBackend string

	// Postgres
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int32

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Fan-out channels and workers
	StateChannelSize   int
	AlertChannelSize   int
	StateWriterWorkers int
	AlertWorkers       int
	LiveStateTTLSec    int

	// Ingestion policy
	ClockSkewSeconds int

	// Severity thresholds
	SeverityHighRatio   float64
	SeverityHighAbs     float64
	SeverityMediumRatio float64
	SeverityMediumAbs   float64

	// Range resolver
	RangeCacheTTLSeconds int

	// Query paging
	DefaultPageSize int
	MaxPageSize     int

	// Auth
	JWTSecret           string
	AuthCacheTTLSeconds int
	ValidAPIKeys        []string

	// MQTT, disabled when MQTTBroker is empty
	MQTTBroker   string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTTopic    string
	MQTTQoS      int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:             getEnv("HTTP_PORT", "8002"),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "*")),
		StoreBackend:         getEnv("STORE_BACKEND", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "coldchain_user"),
		DBPassword:           getEnv("DB_PASSWORD", "coldchain_password"),
		DBName:               getEnv("DB_NAME", "coldchain"),
		DBMaxConns:           int32(getEnvInt("DB_MAX_CONNS", 15)),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		StateChannelSize:     getEnvInt("STATE_CHANNEL_SIZE", 10000),
		AlertChannelSize:     getEnvInt("ALERT_CHANNEL_SIZE", 1000),
		StateWriterWorkers:   getEnvInt("STATE_WRITER_WORKERS", 2),
		AlertWorkers:         getEnvInt("ALERT_WORKERS", 2),
		LiveStateTTLSec:      getEnvInt("LIVE_STATE_TTL_SECONDS", 3600),
		ClockSkewSeconds:     getEnvInt("CLOCK_SKEW_SECONDS", 300),
		SeverityHighRatio:    getEnvFloat("SEVERITY_HIGH_RATIO", 0.5),
		SeverityHighAbs:      getEnvFloat("SEVERITY_HIGH_ABS", 3),
		SeverityMediumRatio:  getEnvFloat("SEVERITY_MEDIUM_RATIO", 0.15),
		SeverityMediumAbs:    getEnvFloat("SEVERITY_MEDIUM_ABS", 1),
		RangeCacheTTLSeconds: getEnvInt("RANGE_CACHE_TTL_SECONDS", 60),
		DefaultPageSize:      getEnvInt("DEFAULT_PAGE_SIZE", 20),
		MaxPageSize:          getEnvInt("MAX_PAGE_SIZE", 100),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		AuthCacheTTLSeconds:  getEnvInt("AUTH_CACHE_TTL_SECONDS", 300),
		ValidAPIKeys:         splitList(getEnv("VALID_API_KEYS", "")),
		MQTTBroker:           getEnv("MQTT_BROKER", ""),
		MQTTClientID:         getEnv("MQTT_CLIENT_ID", "coldchain-compliance"),
		MQTTUsername:         getEnv("MQTT_USERNAME", ""),
		MQTTPassword:         getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:            getEnv("MQTT_TOPIC", "coldchain/readings/+"),
		MQTTQoS:              getEnvInt("MQTT_QOS", 1),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}
}

// DBURL is the pgx connection string including pool sizing.
func (c *Config) DBURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName +
		"?pool_max_conns=" + strconv.Itoa(int(c.DBMaxConns))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
