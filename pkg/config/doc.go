// Package config loads typed application configuration from environment
// variables, with optional .env file support and a per-type cache.
//
// It builds on github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct parsing. Each configuration type
// is parsed at most once per process; later calls are served from the
// cache.
//
// # Usage
//
// Describe the configuration as a struct with env tags:
//
//	type PushConfig struct {
//	    SecretKey   string        `env:"PUSH_SECRET_KEY,required"`
//	    BatchWindow time.Duration `env:"PUSH_BATCH_WINDOW" envDefault:"2s"`
//	}
//
// Optionally load .env files, then parse:
//
//	if err := config.LoadEnv(".env", ".env.local"); err != nil {
//	    log.Fatal(err)
//	}
//
//	var cfg PushConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// When several files are given to LoadEnv, later files override earlier
// ones. With no arguments it falls back to the default .env in the
// working directory when present.
//
// # Errors
//
// Failures are classified with sentinel errors comparable via errors.Is:
// ErrNilPointer, ErrInvalidConfigType, ErrParsingConfig, and
// ErrConfigNotLoaded.
//
// # Testing helpers
//
// ResetCache clears every cached type between tests. ForceReloadConfig
// re-parses a single type after the process environment changes.
package config
