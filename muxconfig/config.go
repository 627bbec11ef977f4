// Package muxconfig loads the router configuration and builds the logger
// and middleware resolver settings from it.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// WAYPOINT_ environment variables (WAYPOINT_LOG_LEVEL sets log.level).
package muxconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment variables read by Load.
const EnvPrefix = "WAYPOINT_"

// Config is the router configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Cache      CacheConfig      `koanf:"cache"`
	Routes     RoutesConfig     `koanf:"routes"`
	Middleware MiddlewareConfig `koanf:"middleware"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty"`
}

// CacheConfig locates the compiled route cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
}

// RoutesConfig locates the route manifest.
type RoutesConfig struct {
	File string `koanf:"file"`
}

// MiddlewareConfig holds resolver aliases, groups and the priority list,
// and the defaults of the built-in middleware.
type MiddlewareConfig struct {
	Aliases  map[string]string   `koanf:"aliases" validate:"dive,keys,required,endkeys,required"`
	Groups   map[string][]string `koanf:"groups" validate:"dive,keys,required,endkeys,dive,required"`
	Priority []string            `koanf:"priority" validate:"unique,dive,required"`
	Timeout  time.Duration       `koanf:"timeout" validate:"gte=0"`

	MaxBodySize    int64      `koanf:"max_body_size" validate:"gte=0"`
	TrustedProxies []string   `koanf:"trusted_proxies" validate:"dive,required"`
	CORS           CORSConfig `koanf:"cors"`
}

// CORSConfig enables the cors middleware when AllowedOrigins is set.
type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins" validate:"dive,required"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	ExposeHeaders    []string `koanf:"expose_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

var defaults = map[string]any{
	"log.level":          "info",
	"log.pretty":         false,
	"cache.enabled":      false,
	"cache.path":         "bootstrap/cache/routes.bin",
	"routes.file":        "",
	"middleware.timeout": "30s",
}

// Load reads the configuration. An empty path skips the file layer; a
// path that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
