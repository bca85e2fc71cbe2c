// Package config loads siteforge settings from defaults, siteforge.yaml,
// SITEFORGE_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"siteforge/logging"
	"siteforge/services"
)

const (
	// DefaultConfigFile is read from the working directory when no path is given.
	DefaultConfigFile = "siteforge.yaml"
	envPrefix         = "SITEFORGE_"
)

// Config is the resolved application configuration.
type Config struct {
	HighlightWindow time.Duration  `koanf:"highlight_window"`
	ChangeLogLimit  int            `koanf:"change_log_limit"`
	CatalogPath     string         `koanf:"catalog_path"`
	WatchCatalog    bool           `koanf:"watch_catalog"`
	Log             logging.Config `koanf:"log"`
}

// ControllerOptions turns the config into recompute controller options.
func (c *Config) ControllerOptions() []services.Option {
	return []services.Option{
		services.WithHighlightWindow(c.HighlightWindow),
		services.WithChangeLogLimit(c.ChangeLogLimit),
	}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"highlight_window": services.DefaultHighlightWindow.String(),
		"change_log_limit": services.DefaultChangeLogLimit,
		"catalog_path":     "",
		"watch_catalog":    false,
		"log.level":        "info",
		"log.format":       "json",
		"log.development":  false,
	}
}

// RegisterFlags adds the config flags to fs. Only flags the user sets
// override the other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to siteforge.yaml")
	fs.Duration("highlight-window", services.DefaultHighlightWindow, "how long changed BOQ lines stay highlighted")
	fs.Int("change-log-limit", services.DefaultChangeLogLimit, "change log entries kept per site")
	fs.String("catalog-path", "", "BoQ template workbook to load the catalog from")
	fs.Bool("watch-catalog", false, "reload the catalog when the workbook changes")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "json", "log format (json, console)")
	fs.Bool("log-development", false, "development logging")
}

// envKey maps SITEFORGE_LOG_LEVEL to log.level and SITEFORGE_CATALOG_PATH
// to catalog_path.
func envKey(s string) string {
	return nestKey(strings.ToLower(strings.TrimPrefix(s, envPrefix)))
}

// flagKey maps --log-level to log.level and --change-log-limit to
// change_log_limit.
func flagKey(name string) string {
	return nestKey(strings.ReplaceAll(name, "-", "_"))
}

func nestKey(key string) string {
	if strings.HasPrefix(key, "log_") {
		return "log." + strings.TrimPrefix(key, "log_")
	}
	return key
}

// Load resolves the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" && flags != nil {
		if v, err := flags.GetString("config"); err == nil {
			cfgFile = v
		}
	}
	explicit := cfgFile != ""
	if !explicit {
		cfgFile = DefaultConfigFile
	}
	if _, err := os.Stat(cfgFile); err == nil {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HighlightWindow <= 0 {
		return fmt.Errorf("highlight_window must be positive, got %s", c.HighlightWindow)
	}
	if c.ChangeLogLimit <= 0 {
		return fmt.Errorf("change_log_limit must be positive, got %d", c.ChangeLogLimit)
	}
	if c.WatchCatalog && c.CatalogPath == "" {
		return fmt.Errorf("watch_catalog requires catalog_path")
	}
	return nil
}
