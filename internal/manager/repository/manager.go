package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	managererrors "ejeapi/internal/manager/errors"
	"ejeapi/pkg/config"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxHistoryEntries caps the history array kept on the manager document.
const MaxHistoryEntries = 500

type ManagerRepository interface {
	Get(ctx context.Context, name string) (*model.ManagerConfig, error)
	// Create inserts c unless a document with the same name exists, and
	// returns whichever document is stored.
	Create(ctx context.Context, c *model.ManagerConfig) (*model.ManagerConfig, error)
	Update(ctx context.Context, name string, set bson.M) (*model.ManagerConfig, error)
	// Toggle negates the boolean at path and appends event to the history.
	Toggle(ctx context.Context, name, path string, event model.ManagerEvent) (*model.ManagerConfig, error)
	AcknowledgeAlert(ctx context.Context, name string, index int, by string, at time.Time) error
}

type mongoManagerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoManagerRepository(cfg *config.Config) ManagerRepository {
	return &mongoManagerRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(cfg.ManagerCollection),
	}
}

// Now is the timestamp used for manager writes.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func decodeResult(res *mongo.SingleResult, name string) (*model.ManagerConfig, error) {
	var c model.ManagerConfig
	if err := res.Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", managererrors.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to decode manager config: %w", err)
	}
	for i := range c.Alerts {
		c.Alerts[i].Index = i
	}
	return &c, nil
}

func (r *mongoManagerRepository) Get(ctx context.Context, name string) (*model.ManagerConfig, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return decodeResult(r.collection.FindOne(ctx, bson.M{"name": name}), name)
}

func (r *mongoManagerRepository) Create(ctx context.Context, c *model.ManagerConfig) (*model.ManagerConfig, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	res := r.collection.FindOneAndUpdate(ctx, bson.M{"name": c.Name}, bson.M{"$setOnInsert": c}, opts)
	return decodeResult(res, c.Name)
}

func (r *mongoManagerRepository) Update(ctx context.Context, name string, set bson.M) (*model.ManagerConfig, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	fields := bson.M{"updatedAt": Now()}
	for k, v := range set {
		fields[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeResult(r.collection.FindOneAndUpdate(ctx, bson.M{"name": name}, bson.M{"$set": fields}, opts), name)
}

func (r *mongoManagerRepository) Toggle(ctx context.Context, name, path string, event model.ManagerEvent) (*model.ManagerConfig, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeResult(r.collection.FindOneAndUpdate(ctx, bson.M{"name": name}, togglePipeline(path, event), opts), name)
}

// togglePipeline negates path (a missing value reads as false) and appends
// event to a history trimmed to MaxHistoryEntries.
func togglePipeline(path string, event model.ManagerEvent) mongo.Pipeline {
	history := bson.M{"$concatArrays": bson.A{
		bson.M{"$ifNull": bson.A{"$history", bson.A{}}},
		bson.A{bson.M{"$literal": event}},
	}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			path:        bson.M{"$not": bson.A{"$" + path}},
			"history":   bson.M{"$slice": bson.A{history, -MaxHistoryEntries}},
			"updatedAt": Now(),
		}}},
	}
}

func (r *mongoManagerRepository) AcknowledgeAlert(ctx context.Context, name string, index int, by string, at time.Time) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter, update := acknowledgeUpdate(name, index, by, at)
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %d", managererrors.ErrAlertNotFound, index)
	}
	return nil
}

func acknowledgeUpdate(name string, index int, by string, at time.Time) (bson.M, bson.M) {
	slot := "alerts." + strconv.Itoa(index)
	filter := bson.M{
		"name": name,
		slot:   bson.M{"$exists": true},
	}
	update := bson.M{"$set": bson.M{
		slot + ".acknowledged":   true,
		slot + ".acknowledgedBy": by,
		slot + ".acknowledgedAt": at,
		"updatedAt":              at,
	}}
	return filter, update
}
