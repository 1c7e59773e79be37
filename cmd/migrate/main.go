package main

import (
	"context"
	"time"

	mongoMigration "ejeapi/internal/migrations/mongo"
	"ejeapi/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()
	migrateMongo(ctx, cfg)
	cfg.Log.Info("Migration completed successfully")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	target := mongoMigration.Target{
		Database:              cfg.MongoDatabaseName,
		CausasCollection:      cfg.CausasCollection,
		SettingsCollection:    cfg.SettingsCollection,
		ManagerCollection:     cfg.ManagerCollection,
		WorkerStatsCollection: cfg.WorkerStatsCollection,
	}
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, target, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
}
