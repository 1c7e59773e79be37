package repository

import (
	"context"
	"errors"
	"fmt"

	managererrors "ejeapi/internal/manager/errors"
	"ejeapi/pkg/config"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RunStatsRepository interface {
	// Find returns the run stats of every worker, or of one type when
	// workerType is set.
	Find(ctx context.Context, workerType model.WorkerType) ([]*model.WorkerRunStats, error)
	FindOne(ctx context.Context, workerType model.WorkerType, workerID string) (*model.WorkerRunStats, error)
}

type mongoRunStatsRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRunStatsRepository(cfg *config.Config) RunStatsRepository {
	return &mongoRunStatsRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(cfg.WorkerStatsCollection),
	}
}

func runStatsFilter(workerType model.WorkerType) bson.M {
	if workerType == "" {
		return bson.M{}
	}
	return bson.M{"workerType": workerType}
}

func (r *mongoRunStatsRepository) Find(ctx context.Context, workerType model.WorkerType) ([]*model.WorkerRunStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "workerType", Value: 1}, {Key: "workerId", Value: 1}})
	cursor, err := r.collection.Find(ctx, runStatsFilter(workerType), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find worker run stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := make([]*model.WorkerRunStats, 0)
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode worker run stats: %w", err)
	}
	return stats, nil
}

func (r *mongoRunStatsRepository) FindOne(ctx context.Context, workerType model.WorkerType, workerID string) (*model.WorkerRunStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"workerType": workerType, "workerId": workerID}
	projection := options.FindOne().SetProjection(bson.M{"workerType": 1, "workerId": 1, "currentRun": 1, "runHistory": 1})

	var stats model.WorkerRunStats
	if err := r.collection.FindOne(ctx, filter, projection).Decode(&stats); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s/%s", managererrors.ErrRunStatsNotFound, workerType, workerID)
		}
		return nil, fmt.Errorf("failed to decode worker run stats: %w", err)
	}
	return &stats, nil
}
