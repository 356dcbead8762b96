package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Service
	Environment string `validate:"required"`
	ServiceName string `validate:"required"`
	Version     string
	Port        int `validate:"min=1,max=65535"`
	APIKey      string
	// Comma separated in the environment
	CORSOrigins    []string
	TrustedProxies []string

	// Logging
	LogLevel      string `validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	LogFormat     string `validate:"oneof=text json"`
	LogDir        string `validate:"required"`
	LogMaxSizeMB  int    `validate:"min=1"`
	LogMaxBackups int    `validate:"min=0"`
	LogMaxAgeDays int    `validate:"min=0"`
	LogAddSource  bool

	// Storage
	DBDialect       string `validate:"oneof=memory sqlite postgres"`
	DBUser          string
	DBPassword      string
	DBHost          string
	DBPort          string
	DBName          string
	DBMaxConns      int           `validate:"min=1"`
	DBMaxConnIdle   time.Duration `validate:"min=0"`
	DBMaxConnLife   time.Duration `validate:"min=0"`
	SQLitePath      string
	ShutdownTimeout time.Duration `validate:"min=1s"`

	// Game data
	CatalogPath string

	// Duel timing; zero falls back to the duel package defaults
	ChallengeTimeout       time.Duration `validate:"min=0"`
	TurnTimeout            time.Duration `validate:"min=0"`
	MaxConsecutiveTimeouts int           `validate:"min=0"`
	FinalizeTimeout        time.Duration `validate:"min=0"`

	// Event publishing
	EventMaxRetries     int           `validate:"min=0"`
	EventRetryDelay     time.Duration `validate:"min=0"`
	EventDeadLetterPath string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", DefaultEnvironment),
		ServiceName:    getEnv("SERVICE_NAME", DefaultServiceName),
		Version:        getEnv("VERSION", ""),
		APIKey:         getEnv("API_KEY", ""),
		CORSOrigins:    getEnvAsSlice("CORS_ORIGINS", nil),
		TrustedProxies: getEnvAsSlice("TRUSTED_PROXIES", nil),

		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", DefaultLogFormat)),
		LogDir:        getEnv("LOG_DIR", DefaultLogDir),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", DefaultLogMaxSizeMB),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", DefaultLogMaxBackups),
		LogMaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", DefaultLogMaxAgeDays),

		DBDialect:       strings.ToLower(getEnv("DB_DIALECT", DefaultDBDialect)),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBName:          getEnv("DB_NAME", DefaultDBName),
		DBMaxConns:      getEnvAsInt("DB_MAX_CONNS", DefaultDBMaxConns),
		DBMaxConnIdle:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", DefaultDBMaxConnIdle),
		DBMaxConnLife:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", DefaultDBMaxConnLife),
		SQLitePath:      getEnv("SQLITE_PATH", DefaultSQLitePath),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),

		CatalogPath: getEnv("DUEL_CATALOG_PATH", ""),

		ChallengeTimeout:       getEnvAsDuration("DUEL_CHALLENGE_TIMEOUT", 0),
		TurnTimeout:            getEnvAsDuration("DUEL_TURN_TIMEOUT", 0),
		MaxConsecutiveTimeouts: getEnvAsInt("DUEL_MAX_CONSECUTIVE_TIMEOUTS", 0),
		FinalizeTimeout:        getEnvAsDuration("DUEL_FINALIZE_TIMEOUT", 0),

		EventMaxRetries:     getEnvAsInt("EVENT_MAX_RETRIES", 0),
		EventRetryDelay:     getEnvAsDuration("EVENT_RETRY_DELAY", 0),
		EventDeadLetterPath: getEnv("EVENT_DEADLETTER_PATH", ""),
	}

	cfg.LogAddSource = getEnvAsBool("LOG_ADD_SOURCE", cfg.IsDevelopment())

	portStr := getEnv("PORT", DefaultPort)
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	// Validate API key is set
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and the storage settings the chosen dialect needs
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%s: %s", ErrMsgInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%s: %w", ErrMsgInvalidConfig, err)
	}

	switch c.DBDialect {
	case DialectSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%s: SQLITE_PATH is required for the sqlite dialect", ErrMsgInvalidConfig)
		}
	case DialectPostgres:
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("%s: DB_HOST and DB_NAME are required for the postgres dialect", ErrMsgInvalidConfig)
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in a dev environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "dev" || c.Environment == "development"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt parses an integer variable, falling back to the default when unset or invalid
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration parses a Go duration string such as "30s"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool accepts the strconv.ParseBool spellings
func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma separated variable, dropping empty items
func getEnvAsSlice(key string, defaultValue []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetDBConnString returns the PostgreSQL connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
}
