// Package config loads settings of the polyglot command from
// .polyglot.yaml and POLYGLOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/funvibe/polyglot/internal/logging"
	"github.com/funvibe/polyglot/pkg/hostaccess"
)

// Config is the full command configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Policy PolicyConfig `mapstructure:"policy"`
	Check  CheckConfig  `mapstructure:"check"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig locates the report database. An empty path disables saving.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// PolicyConfig selects the host access policy. File, when set, wins over
// Preset.
type PolicyConfig struct {
	Preset string `mapstructure:"preset"`
	File   string `mapstructure:"file"`
}

type CheckConfig struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Path: DefaultStorePath()},
		Policy: PolicyConfig{Preset: PresetExplicit},
		Check:  CheckConfig{MaxDepth: 8},
	}
}

// DefaultStorePath is ~/.polyglot/reports.db, or a relative path when the
// home directory is unknown.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, FileName, "reports.db")
}

// Load reads path, or FileName.yaml from the working and home directories
// when path is empty, and applies environment overrides. A missing
// default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("policy.preset", cfg.Policy.Preset)
	v.SetDefault("policy.file", cfg.Policy.File)
	v.SetDefault("check.max_depth", cfg.Check.MaxDepth)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Validate rejects unknown log levels and presets and non-positive depths.
func (c *Config) Validate() error {
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Policy.Preset {
	case PresetExplicit, PresetAll, PresetNone:
	default:
		return fmt.Errorf("policy.preset: unknown preset %q", c.Policy.Preset)
	}
	if c.Check.MaxDepth <= 0 {
		return fmt.Errorf("check.max_depth: must be positive, got %d", c.Check.MaxDepth)
	}
	return nil
}

// BuildPolicy returns the configured policy. Type IDs in a policy file are
// resolved through resolver, which may be nil.
func (c *Config) BuildPolicy(resolver hostaccess.Resolver) (*hostaccess.Policy, error) {
	if c.Policy.File != "" {
		pc, err := hostaccess.LoadConfig(c.Policy.File)
		if err != nil {
			return nil, err
		}
		return pc.Build(resolver)
	}
	return Preset(c.Policy.Preset)
}

// Preset returns the predefined policy with the given name.
func Preset(name string) (*hostaccess.Policy, error) {
	switch name {
	case PresetExplicit:
		return hostaccess.Explicit, nil
	case PresetAll:
		return hostaccess.All, nil
	case PresetNone:
		return hostaccess.None, nil
	}
	return nil, fmt.Errorf("unknown policy preset %q", name)
}
