package utils

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Lock     LockConfig
	Kafka    KafkaConfig
	Reserve  ReserveConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	StoreBackend    string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
	Migrate  bool
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig selects the per-resource lock used around Reserve: none, local or redis.
type LockConfig struct {
	Backend string
	TTL     time.Duration
	Wait    time.Duration
}

// KafkaConfig, event publishing dimatikan kalau Brokers kosong
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ReserveConfig struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	OpTimeout      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "resource-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIGRATE", true)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MONGO_DATABASE", "resource_booking")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOCK_BACKEND", "none")
	v.SetDefault("LOCK_TTL", "5s")
	v.SetDefault("LOCK_WAIT", "2s")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "booking-events")

	v.SetDefault("RESERVE_MAX_ATTEMPTS", 5)
	v.SetDefault("RESERVE_RETRY_BASE_DELAY", "10ms")
	v.SetDefault("RESERVE_RETRY_MAX_DELAY", "200ms")
	v.SetDefault("STORE_OP_TIMEOUT", "5s")
}

// LoadConfig reads .env from the working directory when present; environment variables
// always win.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(".env")
}

func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// .env opsional, di container semua dari env
		if !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	v.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Port:            v.GetString("PORT"),
			Debug:           v.GetBool("DEBUG"),
			LogPath:         v.GetString("LOG_PATH"),
			StoreBackend:    strings.ToLower(v.GetString("STORE_BACKEND")),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Lock: LockConfig{
			Backend: strings.ToLower(v.GetString("LOCK_BACKEND")),
			TTL:     v.GetDuration("LOCK_TTL"),
			Wait:    v.GetDuration("LOCK_WAIT"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Reserve: ReserveConfig{
			MaxAttempts:    v.GetInt("RESERVE_MAX_ATTEMPTS"),
			RetryBaseDelay: v.GetDuration("RESERVE_RETRY_BASE_DELAY"),
			RetryMaxDelay:  v.GetDuration("RESERVE_RETRY_MAX_DELAY"),
			OpTimeout:      v.GetDuration("STORE_OP_TIMEOUT"),
		},
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
