// Package logging wraps log/slog with a process-wide logger that writes text
// to the console and JSON to weekly-rotating files.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/prescriptions-api/config"
)

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

// Options configures InitLoggerWithOptions
type Options struct {
	Dir            string // Empty disables file logging
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool // Keeps info logs on the console in the test environment
}

var DefaultLoggingService *LoggingService

var fallbackLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// InitLogger initializes the global logger with development defaults
func InitLogger(logDir string) {
	InitLoggerWithOptions(Options{
		Dir:            logDir,
		Env:            config.EnvDevelopment,
		RetentionWeeks: 4,
	})
}

// InitLoggerWithOptions initializes the global logger and makes it the slog default.
// A previous file logger is closed first.
func InitLoggerWithOptions(opts Options) {
	if DefaultLoggingService != nil {
		_ = Close()
	}

	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	service := &LoggingService{}

	if opts.Dir == "" {
		service.Logger = slog.New(consoleHandler)
	} else {
		rotating, err := NewRotatingLoggerWithSizeLimit(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
		if err != nil {
			service.Logger = slog.New(consoleHandler)
			service.Logger.Error("Failed to initialize rotating logger, logging to console only", "error", err)
		} else {
			fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{
				Level: GetFileLogLevel(),
			})
			service.rotating = rotating
			service.Logger = slog.New(&multiHandler{
				handlers: []slog.Handler{consoleHandler, fileHandler},
			})
		}
	}

	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	err := DefaultLoggingService.rotating.Close()
	DefaultLoggingService.rotating = nil
	return err
}

// GetConsoleLogLevel picks the console level for an environment.
// An explicit level overrides the environment default, except in tests where
// the console stays quiet unless verbose is set.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level for log files, which keep everything
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return fallbackLogger
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}
