// Package config loads typed configuration structs from environment
// variables.
//
// It wraps github.com/caarlos0/env/v11 for tag-based parsing and
// github.com/joho/godotenv for optional .env file support. Every package
// that owns runtime knobs ships its own Config struct with `env` tags
// (pg.Config, redis.Config, queue.Config, alerts.Config, email.Config);
// this loader parses any of them:
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
// Each configuration type is parsed at most once per process and cached;
// Reset clears the cache for tests that mutate the environment.
package config
