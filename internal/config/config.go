// Package config loads process configuration with koanf.
// Priority: defaults < YAML file < environment (PARLEY_ prefix).
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PARLEY_"

type Config struct {
	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`

	// DBPath is the sqlite database path; ":memory:" is accepted.
	DBPath string `koanf:"db_path"`

	// NatsURL enables the NATS-backed fan-out when set. Empty means the
	// in-process broker, which is fine for a single node.
	NatsURL string `koanf:"nats_url"`

	// CookieSecret signs the principal cookie.
	CookieSecret string `koanf:"cookie_secret"`
}

func defaults() Config {
	return Config{
		Addr:   ":8080",
		DBPath: "parley.db",
	}
}

// Load reads configuration. filePath may be empty.
func Load(filePath string) (Config, error) {
	k := koanf.New(".")
	cfg := defaults()

	if filePath != "" {
		if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	// PARLEY_DB_PATH -> db_path
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
