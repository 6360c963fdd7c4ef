package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "RESTSTORE"

type sandboxConfig struct {
	Addr       string        `mapstructure:"addr" validate:"required"`
	URL        string        `mapstructure:"url" validate:"omitempty,url"`
	Resource   string        `mapstructure:"resource" validate:"required"`
	PrimaryKey string        `mapstructure:"primary_key" validate:"required"`
	Seed       string        `mapstructure:"seed" validate:"omitempty,file"`
	Latency    time.Duration `mapstructure:"latency" validate:"gte=0"`
	Fail       string        `mapstructure:"fail"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Output     string        `mapstructure:"output" validate:"oneof=auto table json"`
	LogLevel   string        `mapstructure:"log_level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	LogFormat  string        `mapstructure:"log_format" validate:"oneof=text json"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("seed", envPrefix+"_SEED", envPrefix+"_MOCK_SEED")

	v.SetDefault("addr", ":8787")
	v.SetDefault("url", "")
	v.SetDefault("seed", "")
	v.SetDefault("latency", time.Duration(0))
	v.SetDefault("fail", "")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("resource", "/records")
	v.SetDefault("primary_key", "id")
	v.SetDefault("output", "auto")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	return v
}

// bindFlags exposes every flag of fs under its snake_case key.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

func loadConfig(v *viper.Viper) (*sandboxConfig, error) {
	var cfg sandboxConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Resource = "/" + strings.Trim(strings.TrimSpace(cfg.Resource), "/")
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
