// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shiori Contributors

// Package config loads host configuration from defaults, an optional
// YAML file, and command-line flags, in increasing precedence.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/shiori-reader/shiori/internal/xdg"
)

// Config holds the extension host configuration.
type Config struct {
	// PluginsDir is the extensions root directory.
	PluginsDir string `koanf:"plugins.dir"`
	// Ignore lists glob patterns of candidates to skip during discovery.
	Ignore []string `koanf:"plugins.ignore"`
	// APIVersion is the host extension API version.
	APIVersion string `koanf:"plugins.api_version"`
	// LogFormat selects "json" or "text" log output.
	LogFormat string `koanf:"log.format"`
}

func defaults() map[string]any {
	return map[string]any{
		"plugins.dir":         xdg.PluginsDir(),
		"plugins.api_version": "1.0",
		"log.format":          "json",
	}
}

// Load builds the configuration. The file is optional: a missing path
// is skipped silently, an unreadable or malformed one fails. Flags
// override file values; dashed flag names map onto dotted keys, so
// --plugins-dir sets plugins.dir.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_INVALID").
					With("path", path).
					Wrapf(err, "failed to load config file")
			}
		} else if !os.IsNotExist(err) {
			return nil, oops.Code("CONFIG_INVALID").
				With("path", path).
				Wrapf(err, "failed to stat config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "."), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to load flags")
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrapf(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if c.PluginsDir == "" {
		return oops.Code("CONFIG_INVALID").New("plugins.dir must not be empty")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			New("log.format must be json or text")
	}
	return nil
}
