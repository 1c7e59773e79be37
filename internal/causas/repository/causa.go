package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	causaserrors "ejeapi/internal/causas/errors"
	"ejeapi/pkg/config"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const recentActivityLimit = 5

type CausaRepository interface {
	Create(ctx context.Context, c *model.Causa) error
	FindByID(ctx context.Context, id string) (*model.Causa, error)
	FindByCuij(ctx context.Context, cuij string) (*model.Causa, error)
	FindByExactCuij(ctx context.Context, cuij string) (*model.Causa, error)
	FindByNumeroAnio(ctx context.Context, numero, anio int) (*model.Causa, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Causa, error)
	FindSection(ctx context.Context, id string, fields ...string) (*model.Causa, error)
	Search(ctx context.Context, filter bson.M, sort bson.D, limit int, offset int64) ([]*model.Causa, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Update(ctx context.Context, id string, set bson.M) (*model.Causa, error)
	Delete(ctx context.Context, id string) (*model.Causa, error)
	Stats(ctx context.Context) (*model.CausaStats, error)

	AddFolder(ctx context.Context, id primitive.ObjectID, folderID primitive.ObjectID, userID *primitive.ObjectID, entry model.UpdateHistoryEntry) error
	RemoveFolder(ctx context.Context, id primitive.ObjectID, folderID primitive.ObjectID, userID *primitive.ObjectID, entry model.UpdateHistoryEntry) error
	FindOneByFolder(ctx context.Context, folderID primitive.ObjectID) (*model.Causa, error)
	SetUserPreference(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID, enabled bool) (bool, error)

	MergeInto(ctx context.Context, targetID primitive.ObjectID, folderIDs, userIDs []primitive.ObjectID, prefs []model.UserUpdatePreference, entry model.UpdateHistoryEntry) error
	MarkResolved(ctx context.Context, pivotID, targetID primitive.ObjectID, at time.Time) (bool, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoCausaRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoCausaRepository(cfg *config.Config) CausaRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCausaRepository{
		cfg:        cfg,
		collection: db.Collection(cfg.CausasCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", causaserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *mongoCausaRepository) findOne(ctx context.Context, filter bson.M, what string, opts ...*options.FindOneOptions) (*model.Causa, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var c model.Causa
	if err := r.collection.FindOne(ctx, filter, opts...).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", causaserrors.ErrNotFound, what)
		}
		return nil, fmt.Errorf("failed to find causa: %w", err)
	}
	return &c, nil
}

func (r *mongoCausaRepository) Create(ctx context.Context, c *model.Causa) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	c.UpdatedAt = ts

	result, err := r.collection.InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to create causa: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return nil
}

func (r *mongoCausaRepository) FindByID(ctx context.Context, id string) (*model.Causa, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id)
}

func (r *mongoCausaRepository) FindByCuij(ctx context.Context, cuij string) (*model.Causa, error) {
	return r.findOne(ctx, bson.M{"cuij": containsInsensitive(cuij)}, cuij)
}

func (r *mongoCausaRepository) FindByExactCuij(ctx context.Context, cuij string) (*model.Causa, error) {
	return r.findOne(ctx, bson.M{"cuij": cuij}, cuij)
}

func (r *mongoCausaRepository) FindByNumeroAnio(ctx context.Context, numero, anio int) (*model.Causa, error) {
	return r.findOne(ctx, bson.M{"numero": numero, "anio": anio}, fmt.Sprintf("%d/%d", numero, anio))
}

func (r *mongoCausaRepository) FindSection(ctx context.Context, id string, fields ...string) (*model.Causa, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	projection := bson.M{"cuij": 1}
	for _, f := range fields {
		projection[f] = 1
	}
	return r.findOne(ctx, bson.M{"_id": oid}, id, options.FindOne().SetProjection(projection))
}

func (r *mongoCausaRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Causa, error) {
	if len(ids) == 0 {
		return []*model.Causa{}, nil
	}
	return r.Search(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.D{{Key: "createdAt", Value: 1}}, 0, 0)
}

func (r *mongoCausaRepository) Search(ctx context.Context, filter bson.M, sort bson.D, limit int, offset int64) ([]*model.Causa, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(sort).SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query causas: %w", err)
	}
	defer cursor.Close(ctx)

	causas := []*model.Causa{}
	if err := cursor.All(ctx, &causas); err != nil {
		return nil, fmt.Errorf("failed to decode causas: %w", err)
	}
	return causas, nil
}

func (r *mongoCausaRepository) Count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count causas: %w", err)
	}
	return n, nil
}

func (r *mongoCausaRepository) Update(ctx context.Context, id string, set bson.M) (*model.Causa, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	fields := bson.M{"updatedAt": now()}
	for k, v := range set {
		fields[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c model.Causa
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": fields}, opts).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", causaserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update causa: %w", err)
	}
	return &c, nil
}

func (r *mongoCausaRepository) Delete(ctx context.Context, id string) (*model.Causa, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndDelete().SetProjection(bson.M{"cuij": 1})
	var c model.Causa
	if err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}, opts).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", causaserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to delete causa: %w", err)
	}
	return &c, nil
}

func (r *mongoCausaRepository) Stats(ctx context.Context) (*model.CausaStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	s := &model.CausaStats{}
	counts := []struct {
		dst    *int64
		filter bson.M
	}{
		{&s.Total, bson.M{}},
		{&s.Verified, bson.M{"verified": true}},
		{&s.Valid, bson.M{"isValid": true}},
		{&s.Private, bson.M{"isPrivate": true}},
		{&s.DetailsLoaded, bson.M{"detailsLoaded": true}},
		{&s.PendingVerification, bson.M{"verified": false, "isValid": true}},
		{&s.PendingDetails, bson.M{"verified": true, "isValid": true, "detailsLoaded": false}},
		{&s.WithErrors, bson.M{"errorCount": bson.M{"$gt": 0}}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := r.collection.CountDocuments(gctx, c.filter)
			if err != nil {
				return fmt.Errorf("failed to count causas: %w", err)
			}
			*c.dst = n
			return nil
		})
	}

	g.Go(func() error {
		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: bson.M{"estado": bson.M{"$ne": nil}}}},
			{{Key: "$group", Value: bson.M{"_id": "$estado", "count": bson.M{"$sum": 1}}}},
			{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		}
		cursor, err := r.collection.Aggregate(gctx, pipeline)
		if err != nil {
			return fmt.Errorf("failed to aggregate estado distribution: %w", err)
		}
		defer cursor.Close(gctx)

		buckets := []model.EstadoBucket{}
		if err := cursor.All(gctx, &buckets); err != nil {
			return fmt.Errorf("failed to decode estado distribution: %w", err)
		}
		s.EstadoDistribution = buckets
		return nil
	})

	g.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
			SetLimit(recentActivityLimit).
			SetProjection(bson.M{
				"cuij": 1, "caratula": 1, "verified": 1, "isValid": 1,
				"isPrivate": 1, "detailsLoaded": 1, "updatedAt": 1,
			})
		cursor, err := r.collection.Find(gctx, bson.M{}, opts)
		if err != nil {
			return fmt.Errorf("failed to query recent activity: %w", err)
		}
		defer cursor.Close(gctx)

		recent := []*model.CausaSummary{}
		if err := cursor.All(gctx, &recent); err != nil {
			return fmt.Errorf("failed to decode recent activity: %w", err)
		}
		s.RecentActivity = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *mongoCausaRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
