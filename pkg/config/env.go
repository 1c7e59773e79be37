package config

const (
	EnvAppEnv   = "APP_ENV"
	EnvLogLevel = "LOG_LEVEL"

	EnvMongoURI              = "MONGO_URI"
	EnvMongoDatabaseName     = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout      = "MONGO_CONN_TIMEOUT"
	EnvCausasCollection      = "CAUSAS_COLLECTION"
	EnvSettingsCollection    = "SETTINGS_COLLECTION"
	EnvManagerCollection     = "MANAGER_COLLECTION"
	EnvWorkerStatsCollection = "WORKER_STATS_COLLECTION"

	EnvPort = "PORT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDefaultPageLimit  = "DEFAULT_PAGE_LIMIT"
	EnvMaxPageLimit      = "MAX_PAGE_LIMIT"
	EnvPendingQueueLimit = "PENDING_QUEUE_LIMIT"
	EnvMaxWorkerErrors   = "MAX_WORKER_ERRORS"

	EnvEventsEnabled    = "EVENTS_ENABLED"
	EnvEventsTopic      = "EVENTS_TOPIC"
	EnvEventsBufferSize = "EVENTS_BUFFER_SIZE"
	EnvEventsWorkers    = "EVENTS_WORKERS"
)
