// Package config loads condexpr settings from condexpr.yaml, CONDEXPR_*
// environment variables and command line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CONDEXPR_SERVER_PORT.
const EnvPrefix = "CONDEXPR"

// Config holds all settings for the server and CLI.
type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Catalog struct {
		// File is a YAML, JSON, TOML or CUE catalog. When a database is
		// also configured the file is imported into it at startup.
		File string `mapstructure:"file"`
	} `mapstructure:"catalog"`

	Validator struct {
		// Tables maps entity names to the table counted for them.
		Tables map[string]string `mapstructure:"tables"`
	} `mapstructure:"validator"`

	NATS struct {
		URL     string `mapstructure:"url"`
		Subject string `mapstructure:"subject"`
	} `mapstructure:"nats"`

	Session struct {
		MaxAge      time.Duration `mapstructure:"max_age"`
		IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"session"`

	Logging struct {
		Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
		Format string `mapstructure:"format"` // "text" or "json"
	} `mapstructure:"logging"`

	Editor struct {
		ValidateOnChange bool `mapstructure:"validate_on_change"`
	} `mapstructure:"editor"`
}

// Load reads the configuration. args are the command line arguments
// without the program name; unknown flags are ignored so callers can
// parse their own.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("condexpr", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.SetOutput(io.Discard)
	flags.String("config", "", "path to condexpr.yaml")
	flags.Int("port", 0, "HTTP listen port")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("condexpr")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "condexpr"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no condexpr.yaml found, using defaults")
	} else {
		slog.Debug("loaded configuration", "file", v.ConfigFileUsed())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := flags.Lookup("port"); f.Changed {
		if err := v.BindPFlag("server.port", f); err != nil {
			return nil, err
		}
	}
	if f := flags.Lookup("log-level"); f.Changed {
		if err := v.BindPFlag("logging.level", f); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")

	v.SetDefault("catalog.file", "")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "condexpr.expressions")

	v.SetDefault("session.max_age", 24*time.Hour)
	v.SetDefault("session.idle_timeout", 30*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("editor.validate_on_change", false)
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger from the logging settings.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Logging.Level)}
	if strings.EqualFold(c.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
