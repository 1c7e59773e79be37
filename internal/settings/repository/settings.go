package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	settingserrors "ejeapi/internal/settings/errors"
	"ejeapi/pkg/config"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SettingsRepository interface {
	Get(ctx context.Context, name string) (*model.WorkerSettings, error)
	// Create inserts s unless a document with the same name exists, and
	// returns whichever document is stored.
	Create(ctx context.Context, s *model.WorkerSettings) (*model.WorkerSettings, error)
	Update(ctx context.Context, name string, set bson.M) (*model.WorkerSettings, error)
	Toggle(ctx context.Context, name string) (*model.WorkerSettings, error)
}

type mongoSettingsRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSettingsRepository(cfg *config.Config) SettingsRepository {
	return &mongoSettingsRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(cfg.SettingsCollection),
	}
}

// Now is the timestamp used for settings writes.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func decodeResult(res *mongo.SingleResult, name string) (*model.WorkerSettings, error) {
	var s model.WorkerSettings
	if err := res.Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", settingserrors.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &s, nil
}

func (r *mongoSettingsRepository) Get(ctx context.Context, name string) (*model.WorkerSettings, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return decodeResult(r.collection.FindOne(ctx, bson.M{"name": name}), name)
}

func (r *mongoSettingsRepository) Create(ctx context.Context, s *model.WorkerSettings) (*model.WorkerSettings, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// $setOnInsert keeps concurrent first reads from creating duplicates.
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	res := r.collection.FindOneAndUpdate(ctx, bson.M{"name": s.Name}, bson.M{"$setOnInsert": s}, opts)
	return decodeResult(res, s.Name)
}

func (r *mongoSettingsRepository) Update(ctx context.Context, name string, set bson.M) (*model.WorkerSettings, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields := bson.M{"updatedAt": Now()}
	for k, v := range set {
		fields[k] = v
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	update := bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{"createdAt": Now()},
	}
	return decodeResult(r.collection.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts), name)
}

func (r *mongoSettingsRepository) Toggle(ctx context.Context, name string) (*model.WorkerSettings, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"enabled":   bson.M{"$not": bson.A{"$enabled"}},
			"updatedAt": Now(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeResult(r.collection.FindOneAndUpdate(ctx, bson.M{"name": name}, pipeline, opts), name)
}
