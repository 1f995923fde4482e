// Package config loads typed configuration structs from environment
// variables, with an optional .env file for local development. Struct fields
// are declared with github.com/caarlos0/env tags:
//
//	type Config struct {
//		Addr string `env:"PUSHKIT_WS_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when Load is given a nil target.
	ErrNilPointer = errors.New("config: nil pointer provided")

	// ErrParsingConfig wraps env tag parsing failures.
	ErrParsingConfig = errors.New("config: failed to parse")
)

var dotenvOnce sync.Once

// Load populates the struct from the environment. The default .env file is
// loaded once per process before the first parse; a missing file is not an
// error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Intended for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}
