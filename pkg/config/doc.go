// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (dotenv files) and github.com/caarlos0/env/v11
// (struct tag parsing). Every package in this module declares its own Config
// struct with `env` and `envDefault` tags; the process entry point loads them
// once through Load and passes the values down explicitly.
//
//	var cfg struct {
//		BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
//	}
//	config.MustLoad(&cfg)
//
// Parsed values are cached per type and prefix. Tests that mutate the
// environment should call Reset or pass WithoutCache.
package config
