package config

import (
	"os"
	"strings"
)

// Environment variables that override file values.
const (
	EnvIdentifier = "BLUESKY_IDENTIFIER"
	EnvPassword   = "BLUESKY_PASSWORD"
)

// applyEnv lets credentials live outside the config file.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvIdentifier); ok && strings.TrimSpace(v) != "" {
		cfg.Bluesky.Identifier = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPassword); ok && v != "" {
		cfg.Bluesky.Password = v
	}
}
