package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backend identifiers accepted by STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Env  string
	Port int

	Platform PlatformConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
}

// PlatformConfig describes the chat community the service manages and the
// policies applied inside it.
type PlatformConfig struct {
	Token             string
	CommunityID       int64
	StudentRoleName   string
	EmailSuffix       string
	PrivateContainers bool
	DefaultTerm       string
}

// StorageConfig selects the document-store backend.
type StorageConfig struct {
	Backend string
	DataDir string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Platform = PlatformConfig{
		Token:             v.GetString("PLATFORM_TOKEN"),
		CommunityID:       v.GetInt64("COMMUNITY_ID"),
		StudentRoleName:   v.GetString("STUDENT_ROLE_NAME"),
		EmailSuffix:       v.GetString("STUDENT_EMAIL_SUFFIX"),
		PrivateContainers: v.GetBool("PRIVATE_CONTAINERS"),
		DefaultTerm:       strings.ToLower(v.GetString("DEFAULT_TERM")),
	}

	cfg.Storage = StorageConfig{
		Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
		DataDir: v.GetString("STORAGE_DATA_DIR"),
	}
	switch cfg.Storage.Backend {
	case BackendFile, BackendRedis, BackendPostgres:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Timeout:  parseDuration(v.GetString("REDIS_TIMEOUT"), 5*time.Second),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("PLATFORM_TOKEN", "")
	v.SetDefault("COMMUNITY_ID", 0)
	v.SetDefault("STUDENT_ROLE_NAME", "student")
	v.SetDefault("STUDENT_EMAIL_SUFFIX", "@berkeley.edu")
	v.SetDefault("PRIVATE_CONTAINERS", true)
	v.SetDefault("DEFAULT_TERM", "fa25")

	v.SetDefault("STORAGE_BACKEND", BackendFile)
	v.SetDefault("STORAGE_DATA_DIR", "./data")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "coursespaces")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TIMEOUT", "5s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
