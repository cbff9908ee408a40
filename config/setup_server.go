package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

var ErrMissingSecret = errors.New("jwt secret key is not configured")

type AppConfig struct {
	DatabaseConfig DatabaseConfig     `yaml:"databaseConfig"`
	RedisConfig    RedisConfig        `yaml:"redisConfig"`
	ServerAddr     string             `yaml:"serverAddr"`
	JWT            JWTConfig          `yaml:"jwt"`
	RefreshStore   RefreshStoreConfig `yaml:"refreshStore"`
	Log            LogConfig          `yaml:"log"`
}

func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv : environment variables take precedence over the yaml file
func (cfg *AppConfig) applyEnv() {
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		cfg.JWT.SecretKey = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.DatabaseConfig.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks the settings the authentication core cannot start without.
func (cfg *AppConfig) Validate() error {
	if cfg.JWT.SecretKey == "" {
		return ErrMissingSecret
	}

	accessTTL, err := time.ParseDuration(cfg.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("invalid access_token_ttl %q: %w", cfg.JWT.AccessTokenTTL, err)
	}
	refreshTTL, err := time.ParseDuration(cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("invalid refresh_token_ttl %q: %w", cfg.JWT.RefreshTokenTTL, err)
	}
	// token timestamps have second precision
	if accessTTL < time.Second || refreshTTL < time.Second {
		return fmt.Errorf("token ttl must be at least one second")
	}
	if accessTTL >= refreshTTL {
		return fmt.Errorf("access_token_ttl (%s) must be shorter than refresh_token_ttl (%s)", accessTTL, refreshTTL)
	}

	switch cfg.RefreshStore.Backend {
	case "":
		cfg.RefreshStore.Backend = RefreshStorePostgres
	case RefreshStorePostgres, RefreshStoreRedis:
	default:
		return fmt.Errorf("unknown refresh store backend %q", cfg.RefreshStore.Backend)
	}

	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}

	return nil
}

func SetupServer(serverAddress string) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server, router
}

func SetupDatabase(dsn string) (*Database, error) {
	return NewDatabaseConnection("postgres", dsn)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
