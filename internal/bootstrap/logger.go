package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/osse101/BrandishDuels_Go/internal/config"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// SetupLogger installs the default logger writing to stdout and to a size-rotated
// file under cfg.LogDir. The returned closer flushes and closes the file.
func SetupLogger(cfg *config.Config) (io.Closer, error) {
	return setupLogger(cfg, os.Stdout)
}

func setupLogger(cfg *config.Config, console io.Writer) (io.Closer, error) {
	if err := os.MkdirAll(cfg.LogDir, DirPermission); err != nil {
		return nil, fmt.Errorf("%s: %w", LogMsgFailedCreateLogsDir, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, LogFileName),
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}

	logger.InitLoggerWithWriter(logger.NewConfig(
		cfg.LogLevel,
		cfg.LogFormat,
		cfg.ServiceName,
		cfg.Version,
		cfg.Environment,
		cfg.LogAddSource,
	), io.MultiWriter(console, rotator))

	slog.Info(LogMsgLoggingInitialized, "level", cfg.LogLevel, "file", rotator.Filename)
	slog.Info(LogMsgStartingService,
		"environment", cfg.Environment,
		"log_format", cfg.LogFormat,
		"version", cfg.Version)

	slog.Debug(LogMsgConfigurationLoaded,
		"dialect", cfg.DBDialect,
		"db_host", cfg.DBHost,
		"db_name", cfg.DBName,
		"port", cfg.Port)

	return rotator, nil
}
