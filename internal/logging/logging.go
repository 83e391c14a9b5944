// Package logging builds the zap loggers shared by every component.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvLogLevel = "DEPTHLENS_LOG_LEVEL"
	EnvLogDev   = "DEPTHLENS_LOG_DEV"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options is the resolved logger configuration.
type Options struct {
	Level       zapcore.Level
	Disabled    bool
	Development bool
	Timestamp   bool
}

// New builds a logger for the profile. level, when non-empty, overrides the
// profile level; the environment overrides both.
func New(profile Profile, level string) (*zap.SugaredLogger, error) {
	opts := defaultOptions(profile)
	if level != "" {
		lvl, off, ok := ParseLevel(level)
		if !ok {
			return nil, fmt.Errorf("unknown log level %q", level)
		}
		opts.Level, opts.Disabled = lvl, off
	}
	applyEnvOverrides(&opts)
	return build(opts)
}

// NewRuntime is New(ProfileRuntime, level).
func NewRuntime(level string) (*zap.SugaredLogger, error) {
	return New(ProfileRuntime, level)
}

func defaultOptions(profile Profile) Options {
	switch profile {
	case ProfileTest:
		return Options{Level: zapcore.DebugLevel, Timestamp: false}
	default:
		return Options{Level: zapcore.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(opts *Options) {
	if lvl, off, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		opts.Level, opts.Disabled = lvl, off
	}
	if v, ok := parseBool(os.Getenv(EnvLogDev)); ok {
		opts.Development = v
	}
}

func build(opts Options) (*zap.SugaredLogger, error) {
	if opts.Disabled {
		return zap.NewNop().Sugar(), nil
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(opts.Level)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !opts.Timestamp {
		cfg.EncoderConfig.TimeKey = ""
	}
	cfg.Sampling = nil

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Sugar(), nil
}

// ParseLevel accepts trace|debug|info|warn|error|off and their aliases.
// zap has no trace level, so trace maps to debug.
func ParseLevel(raw string) (lvl zapcore.Level, off bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zapcore.InfoLevel, false, false
	case "trace", "diagnostics", "debug":
		return zapcore.DebugLevel, false, true
	case "info":
		return zapcore.InfoLevel, false, true
	case "warn", "warning":
		return zapcore.WarnLevel, false, true
	case "error":
		return zapcore.ErrorLevel, false, true
	case "disabled", "disable", "off", "none":
		return zapcore.InfoLevel, true, true
	default:
		return zapcore.InfoLevel, false, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
