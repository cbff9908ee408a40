package config

import "time"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	SecretKey           string `yaml:"secret_key"`
	AccessTokenTTL      string `yaml:"access_token_ttl"`
	RefreshTokenTTL     string `yaml:"refresh_token_ttl"`
	Issuer              string `yaml:"issuer"`
	RotateRefreshTokens *bool  `yaml:"rotate_refresh_tokens"`
}

// AccessTTL : access token lifetime, only meaningful after AppConfig.Validate
func (c *JWTConfig) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(c.AccessTokenTTL)
	return d
}

// RefreshTTL : refresh token lifetime, only meaningful after AppConfig.Validate
func (c *JWTConfig) RefreshTTL() time.Duration {
	d, _ := time.ParseDuration(c.RefreshTokenTTL)
	return d
}

// Rotate reports whether refresh tokens are rotated on use. Defaults to true.
func (c *JWTConfig) Rotate() bool {
	return c.RotateRefreshTokens == nil || *c.RotateRefreshTokens
}

type RefreshStoreConfig struct {
	Backend string `yaml:"backend"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
)
