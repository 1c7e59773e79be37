package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ejeapi/internal/migrations/mongo/validators"
	"ejeapi/pkg/logger"
)

var (
	CausasIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "cuij", Value: 1}}},
		{Keys: bson.D{{Key: "numero", Value: 1}, {Key: "anio", Value: 1}}},
		{Keys: bson.D{{Key: "folderIds", Value: 1}}},
		{Keys: bson.D{{Key: "userCausaIds", Value: 1}}},
		{Keys: bson.D{
			{Key: "verified", Value: 1},
			{Key: "isValid", Value: 1},
			{Key: "errorCount", Value: 1},
			{Key: "createdAt", Value: 1},
		}},
		{Keys: bson.D{{Key: "lockedBy", Value: 1}, {Key: "lockedAt", Value: 1}}},
		{Keys: bson.D{{Key: "isPivot", Value: 1}, {Key: "resolved", Value: 1}}},
	}

	SettingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	ManagerIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	WorkerStatsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workerType", Value: 1}, {Key: "workerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
)

// Target names the database and collections a migration run applies to.
type Target struct {
	Database              string
	CausasCollection      string
	SettingsCollection    string
	ManagerCollection     string
	WorkerStatsCollection string
}

type collectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func (t Target) collections() []collectionDef {
	return []collectionDef{
		{Name: t.CausasCollection, Indexes: CausasIndexes, Validator: validators.CausaValidator},
		{Name: t.SettingsCollection, Indexes: SettingsIndexes, Validator: validators.SettingsValidator},
		{Name: t.ManagerCollection, Indexes: ManagerIndexes, Validator: validators.ManagerValidator},
		{Name: t.WorkerStatsCollection, Indexes: WorkerStatsIndexes, Validator: validators.WorkerStatsValidator},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, target Target, log *logger.Logger) error {
	db := client.Database(target.Database)
	log.Info("Running Mongo migrations", "database", target.Database)

	for _, def := range target.collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
