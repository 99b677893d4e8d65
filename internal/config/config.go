package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr         string
	PostgresDSN      string
	RedisAddr        string
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaResyncTopic string
	KafkaGroupID     string
	JWTSecret        string
	JWTTTL           time.Duration
	AdminSignupOpen  bool
	UploadDir        string
	IFSCBaseURL      string
	IFSCTimeout      time.Duration
	DisplayOffset    time.Duration
	SequenceBase     int64
	LogLevel         string
	OTLPEndpoint     string
	ServiceName      string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=payments sslmode=disable"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:     []string{getEnv("KAFKA_BROKER", "localhost:9092")},
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "payments"),
		KafkaResyncTopic: getEnv("KAFKA_RESYNC_TOPIC", "wallet-resync"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "payment-ledger"),
		JWTSecret:        getEnv("JWT_SECRET", "supersecret"),
		JWTTTL:           getDuration("JWT_TTL", time.Hour),
		AdminSignupOpen:  getBool("ADMIN_SIGNUP_OPEN", false),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		IFSCBaseURL:      getEnv("IFSC_BASE_URL", "https://ifsc.razorpay.com"),
		IFSCTimeout:      getDuration("IFSC_TIMEOUT", 5*time.Second),
		DisplayOffset:    getDuration("DISPLAY_TZ_OFFSET", 5*time.Hour+30*time.Minute),
		SequenceBase:     getInt64("SEQUENCE_BASE", 1000),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		ServiceName:      getEnv("SERVICE_NAME", "payment-ledger"),
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"display_offset", cfg.DisplayOffset.String(),
		"sequence_base", cfg.SequenceBase,
		"admin_signup_open", cfg.AdminSignupOpen)
	return cfg
}

// DisplayLocation is the fixed zone used to render timestamps and to cut
// date filters into calendar days.
func (c *Config) DisplayLocation() *time.Location {
	return time.FixedZone("display", int(c.DisplayOffset.Seconds()))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback.String())
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}
