package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	envFilesOnce sync.Once
)

// Option adjusts how a configuration struct is parsed.
type Option func(*loadOptions)

type loadOptions struct {
	prefix   string
	envFiles []string
	noCache  bool
}

// WithPrefix parses variables with the given prefix, e.g. "BILLING_".
// Configs loaded with different prefixes are cached separately.
func WithPrefix(prefix string) Option {
	return func(o *loadOptions) { o.prefix = prefix }
}

// WithEnvFiles overrides the dotenv files read before the first parse.
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(o *loadOptions) { o.envFiles = files }
}

// WithoutCache forces the environment to be parsed again.
func WithoutCache() Option {
	return func(o *loadOptions) { o.noCache = true }
}

// Load populates v from the process environment using `env` struct tags.
// The first call reads the dotenv files (".env" by default) into the
// environment; values already set in the environment win.
//
// The parsed value is cached per type and prefix, so repeated calls are cheap
// and every package observes the same configuration.
//
//	var cfg billing.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := loadOptions{envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(&o)
	}

	envFilesOnce.Do(func() {
		for _, f := range o.envFiles {
			_ = godotenv.Load(f)
		}
	})

	key := cacheKey[T](o.prefix)

	if !o.noCache {
		cacheMu.RLock()
		cached, ok := cache[key]
		cacheMu.RUnlock()
		if ok {
			*v = cached.(T)
			return nil
		}
	}

	var parsed T
	if err := env.ParseWithOptions(&parsed, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	cache[key] = parsed
	cacheMu.Unlock()

	*v = parsed
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Reset drops every cached configuration.
func Reset() {
	cacheMu.Lock()
	clear(cache)
	cacheMu.Unlock()
}

func cacheKey[T any](prefix string) string {
	t := reflect.TypeFor[T]()
	return prefix + "|" + t.PkgPath() + "." + t.String()
}
