package config

import "time"

// SessionSettings selects the session store backing for the front-end
// adapters. The in-memory backend is single-process only.
type SessionSettings struct {
	Backend  string        `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AuthSettings configures the credential issuer.
type AuthSettings struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// CatalogSettings configures the cached price-list lookup.
type CatalogSettings struct {
	RedisURL string        `mapstructure:"redis_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}
