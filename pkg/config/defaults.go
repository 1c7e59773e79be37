package config

import "time"

const (
	DefaultAppEnv   = "development"
	DefaultLogLevel = "info"

	DefaultMongoURI              = "mongodb://localhost:27017"
	DefaultMongoDatabaseName     = "eje"
	DefaultMongoConnTimeout      = 5 * time.Second
	DefaultCausasCollection      = "causas-eje"
	DefaultSettingsCollection    = "configuracion-eje"
	DefaultManagerCollection     = "manager-config-eje"
	DefaultWorkerStatsCollection = "worker-stats-eje"

	DefaultPort = "3004"

	DefaultRateLimitRequests = 600
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 10 * 1024 * 1024 // 10MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 45 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 8 * time.Second

	DefaultPageLimit         = 20
	DefaultMaxPageLimit      = 100
	DefaultPendingQueueLimit = 10
	DefaultMaxWorkerErrors   = 3

	DefaultEventsEnabled    = false
	DefaultEventsTopic      = "eje.causas.events"
	DefaultEventsBufferSize = 1000
	DefaultEventsWorkers    = 4
)
