// Package logger configures the process-wide zerolog logger. The MCP server
// owns stdout, so logs go to a file.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environment variables read by InitFromEnv.
const (
	envLogPath  = "OBJCACHE_LOG"
	envLogLevel = "OBJCACHE_LOG_LEVEL"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// InitFromEnv initializes the logger using OBJCACHE_LOG or a default path
// next to the executable.
func InitFromEnv() error {
	path := os.Getenv(envLogPath)
	if path == "" {
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "objcache.log")
		} else {
			path = "./objcache.log"
		}
	}
	level := os.Getenv(envLogLevel)
	if level == "" {
		level = "info"
	}
	return Init(path, level)
}

// Init points the global logger at path, appending JSON lines at the given
// level (debug, info, warn, error). Repeated calls are no-ops.
func Init(path, level string) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		return nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	if err := ensureParentDir(path); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	log.Logger = zerolog.New(f).With().Timestamp().Logger().Level(lvl)
	return nil
}

// Close closes the underlying log file, if open, and silences the logger.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.Logger = zerolog.Nop()
	err := logFile.Close()
	logFile = nil
	return err
}

// Infof logs informational messages.
func Infof(format string, args ...any) { log.Info().Msgf(format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { log.Warn().Msgf(format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { log.Error().Msgf(format, args...) }

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
