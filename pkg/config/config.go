package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ejeapi/pkg/client"
	"ejeapi/pkg/logger"
)

type Config struct {
	AppEnv string

	MongoURI              string
	MongoDatabaseName     string
	MongoConnTimeout      time.Duration
	CausasCollection      string
	SettingsCollection    string
	ManagerCollection     string
	WorkerStatsCollection string

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DefaultPageLimit  int
	MaxPageLimit      int
	PendingQueueLimit int
	MaxWorkerErrors   int

	EventsEnabled    bool
	EventsTopic      string
	EventsBufferSize int
	EventsWorkers    int

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	appEnv := getEnvStr(EnvAppEnv, DefaultAppEnv)
	logFormat := logger.JSON
	if appEnv == "development" {
		logFormat = logger.TEXT
	}

	cfg := &Config{
		AppEnv: appEnv,

		MongoURI:              getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName:     getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:      getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		CausasCollection:      getEnvStr(EnvCausasCollection, DefaultCausasCollection),
		SettingsCollection:    getEnvStr(EnvSettingsCollection, DefaultSettingsCollection),
		ManagerCollection:     getEnvStr(EnvManagerCollection, DefaultManagerCollection),
		WorkerStatsCollection: getEnvStr(EnvWorkerStatsCollection, DefaultWorkerStatsCollection),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DefaultPageLimit:  getEnvNum(EnvDefaultPageLimit, DefaultPageLimit),
		MaxPageLimit:      getEnvNum(EnvMaxPageLimit, DefaultMaxPageLimit),
		PendingQueueLimit: getEnvNum(EnvPendingQueueLimit, DefaultPendingQueueLimit),
		MaxWorkerErrors:   getEnvNum(EnvMaxWorkerErrors, DefaultMaxWorkerErrors),

		EventsEnabled:    getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		EventsTopic:      getEnvStr(EnvEventsTopic, DefaultEventsTopic),
		EventsBufferSize: getEnvNum(EnvEventsBufferSize, DefaultEventsBufferSize),
		EventsWorkers:    getEnvNum(EnvEventsWorkers, DefaultEventsWorkers),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logFormat,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.CausasCollection == "" {
		errors = append(errors, "CausasCollection cannot be empty")
	}
	if cfg.SettingsCollection == "" {
		errors = append(errors, "SettingsCollection cannot be empty")
	}
	if cfg.ManagerCollection == "" {
		errors = append(errors, "ManagerCollection cannot be empty")
	}
	if cfg.WorkerStatsCollection == "" {
		errors = append(errors, "WorkerStatsCollection cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.DefaultPageLimit <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultPageLimit must be positive, got: %d", cfg.DefaultPageLimit))
	}
	if cfg.MaxPageLimit < cfg.DefaultPageLimit {
		errors = append(errors, fmt.Sprintf("MaxPageLimit (%d) must be >= DefaultPageLimit (%d)", cfg.MaxPageLimit, cfg.DefaultPageLimit))
	}
	if cfg.PendingQueueLimit <= 0 {
		errors = append(errors, fmt.Sprintf("PendingQueueLimit must be positive, got: %d", cfg.PendingQueueLimit))
	}
	if cfg.MaxWorkerErrors <= 0 {
		errors = append(errors, fmt.Sprintf("MaxWorkerErrors must be positive, got: %d", cfg.MaxWorkerErrors))
	}
	if cfg.EventsEnabled && strings.TrimSpace(cfg.EventsTopic) == "" {
		errors = append(errors, "EventsTopic cannot be empty when events are enabled")
	}
	if cfg.EventsBufferSize <= 0 {
		errors = append(errors, fmt.Sprintf("EventsBufferSize must be positive, got: %d", cfg.EventsBufferSize))
	}
	if cfg.EventsWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("EventsWorkers must be positive, got: %d", cfg.EventsWorkers))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"app_env", cfg.AppEnv,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"causas_collection", cfg.CausasCollection,
		"settings_collection", cfg.SettingsCollection,
		"manager_collection", cfg.ManagerCollection,
		"worker_stats_collection", cfg.WorkerStatsCollection,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"default_page_limit", cfg.DefaultPageLimit,
		"max_page_limit", cfg.MaxPageLimit,
		"pending_queue_limit", cfg.PendingQueueLimit,
		"max_worker_errors", cfg.MaxWorkerErrors,
		"events_enabled", cfg.EventsEnabled,
		"events_topic", cfg.EventsTopic,
		"events_buffer_size", cfg.EventsBufferSize,
		"events_workers", cfg.EventsWorkers,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

// NormalizePage clamps page to >= 1.
func NormalizePage(page int) int {
	return max(1, page)
}

// NormalizePageLimit applies the default when limit is unset and caps it.
func (cfg *Config) NormalizePageLimit(limit int) int {
	if limit <= 0 {
		return cfg.DefaultPageLimit
	}
	return min(limit, cfg.MaxPageLimit)
}
