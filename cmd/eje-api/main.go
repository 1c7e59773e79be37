package main

import (
	causashandler "ejeapi/internal/causas/handler"
	causasrepository "ejeapi/internal/causas/repository"
	causasservice "ejeapi/internal/causas/service"
	causasvalidator "ejeapi/internal/causas/validator"
	"ejeapi/internal/events"
	"ejeapi/internal/lease"
	managerhandler "ejeapi/internal/manager/handler"
	managerrepository "ejeapi/internal/manager/repository"
	managerservice "ejeapi/internal/manager/service"
	settingshandler "ejeapi/internal/settings/handler"
	settingsrepository "ejeapi/internal/settings/repository"
	settingsservice "ejeapi/internal/settings/service"
	workershandler "ejeapi/internal/workers/handler"
	workersrepository "ejeapi/internal/workers/repository"
	workersservice "ejeapi/internal/workers/service"
	"ejeapi/pkg/app"
	"ejeapi/pkg/config"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/kafka"
	kafka_config "ejeapi/pkg/kafka/config"
	kafka_middleware "ejeapi/pkg/kafka/middleware"
	"ejeapi/pkg/validation"
)

const ServiceName = "eje-api"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting EJE API service")
	publisher := initPublisher(cfg)
	paging := httputil.Paging{DefaultLimit: cfg.DefaultPageLimit, MaxLimit: cfg.MaxPageLimit}

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(publisher)
	serverApp.SetApp(
		causashandler.NewCausaHandler(initCausaService(cfg, publisher), paging, cfg.Log),
		workershandler.NewWorkerHandler(initWorkerService(cfg, publisher), paging, cfg.Log),
		settingshandler.NewSettingsHandler(initSettingsService(cfg), cfg.Log),
		managerhandler.NewManagerHandler(initManagerService(cfg), cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Domain events disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Domain events enabled", "topic", cfg.EventsTopic, "brokers", kafkaCfg.Brokers)
	queue := events.QueueConfig{Size: cfg.EventsBufferSize, Workers: cfg.EventsWorkers}
	return events.NewKafkaPublisher(producer, ServiceName, queue, cfg.Log)
}

func initCausaService(cfg *config.Config, publisher events.Publisher) causasservice.CausaService {
	causaRepo := causasrepository.NewMongoCausaRepository(cfg)
	causaService := causasservice.NewCausaService(
		causaRepo,
		causasvalidator.NewCausaValidator(),
		publisher,
		cfg,
	)

	cfg.Log.Info("Causas service initialized", "database", cfg.MongoDatabaseName, "collection", cfg.CausasCollection)
	return causaService
}

func initWorkerService(cfg *config.Config, publisher events.Publisher) workersservice.WorkerService {
	collection := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(cfg.CausasCollection)
	locker := lease.NewLocker(lease.NewMongoStore(collection, cfg.WriteTimeout), publisher, cfg.Log)
	workerService := workersservice.NewWorkerService(
		workersrepository.NewMongoWorkerRepository(cfg),
		locker,
		cfg,
	)

	cfg.Log.Info("Workers service initialized", "lease_duration", lease.Duration.String())
	return workerService
}

func initSettingsService(cfg *config.Config) settingsservice.SettingsService {
	settingsService := settingsservice.NewSettingsService(
		settingsrepository.NewMongoSettingsRepository(cfg),
		validation.New(),
		cfg,
	)

	cfg.Log.Info("Settings service initialized", "collection", cfg.SettingsCollection)
	return settingsService
}

func initManagerService(cfg *config.Config) managerservice.ManagerService {
	managerService := managerservice.NewManagerService(
		managerrepository.NewMongoManagerRepository(cfg),
		managerrepository.NewMongoRunStatsRepository(cfg),
		validation.New(),
		cfg,
	)

	cfg.Log.Info("Manager service initialized", "collection", cfg.ManagerCollection, "worker_stats_collection", cfg.WorkerStatsCollection)
	return managerService
}
