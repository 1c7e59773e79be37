package repository

import (
	"context"
	"fmt"
	"time"

	"ejeapi/internal/lease"
	workerserrors "ejeapi/internal/workers/errors"
	"ejeapi/pkg/config"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// Counts are the raw totals behind the worker statistics.
type Counts struct {
	Total               int64
	PendingVerification int64
	Verified            int64
	PendingDetails      int64
	DetailsLoaded       int64
	Invalid             int64
	Private             int64
	Locked              int64
	Stuck               int64
	RecentlyProcessed   int64
	WithErrors          int64
	ErrorDistribution   []model.ErrorBucket
}

type WorkerRepository interface {
	PendingVerification(ctx context.Context, maxErrors, limit int, now time.Time) ([]*model.Causa, error)
	PendingUpdate(ctx context.Context, maxErrors, limit int, now time.Time) ([]*model.Causa, error)
	Counts(ctx context.Context, now time.Time) (*Counts, error)
	Eligibility(ctx context.Context, maxErrors int, now time.Time) (*model.Eligibility, error)
	RecentlyVerified(ctx context.Context, since time.Time, limit int) ([]*model.CausaSummary, error)
	RecentlyUpdated(ctx context.Context, since time.Time, limit int) ([]*model.CausaSummary, error)
	FindWithErrors(ctx context.Context, limit int, offset int64) ([]*model.CausaSummary, error)
	CountWithErrors(ctx context.Context) (int64, error)
	ResetError(ctx context.Context, id string) error
}

type mongoWorkerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWorkerRepository(cfg *config.Config) WorkerRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWorkerRepository{
		cfg:        cfg,
		collection: db.Collection(cfg.CausasCollection),
	}
}

// VerificationQueueFilter selects causas waiting for their first check.
func VerificationQueueFilter() bson.M {
	return bson.M{"verified": false, "isValid": nil}
}

// UpdateQueueFilter selects verified public causas whose details were
// never loaded.
func UpdateQueueFilter() bson.M {
	return bson.M{"verified": true, "isValid": true, "isPrivate": false, "detailsLoaded": false}
}

func withClauses(base bson.M, extra bson.M) bson.M {
	out := make(bson.M, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// eligible narrows a queue filter to records under the error cap with an
// available lease.
func eligible(base bson.M, maxErrors int, now time.Time) bson.M {
	return withClauses(base, bson.M{
		"errorCount": bson.M{"$lt": maxErrors},
		"$or":        lease.AvailableClauses(now),
	})
}

var queueProjection = bson.M{"movimientos": 0, "updateHistory": 0, "intervinientes": 0}

var summaryProjection = bson.M{
	"cuij": 1, "numero": 1, "anio": 1, "caratula": 1,
	"verified": 1, "isValid": 1, "isPrivate": 1, "detailsLoaded": 1,
	"verifiedAt": 1, "detailsLastUpdate": 1, "movimientosCount": 1,
	"errorCount": 1, "lastError": 1, "lockedBy": 1, "lockedAt": 1, "updatedAt": 1,
}

func (r *mongoWorkerRepository) PendingVerification(ctx context.Context, maxErrors, limit int, now time.Time) ([]*model.Causa, error) {
	return r.queue(ctx, eligible(VerificationQueueFilter(), maxErrors, now), limit)
}

func (r *mongoWorkerRepository) PendingUpdate(ctx context.Context, maxErrors, limit int, now time.Time) ([]*model.Causa, error) {
	return r.queue(ctx, eligible(UpdateQueueFilter(), maxErrors, now), limit)
}

func (r *mongoWorkerRepository) queue(ctx context.Context, filter bson.M, limit int) ([]*model.Causa, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(queueProjection)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query worker queue: %w", err)
	}
	defer cursor.Close(ctx)

	causas := []*model.Causa{}
	if err := cursor.All(ctx, &causas); err != nil {
		return nil, fmt.Errorf("failed to decode worker queue: %w", err)
	}
	return causas, nil
}

func (r *mongoWorkerRepository) Counts(ctx context.Context, now time.Time) (*Counts, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	since := now.Add(-24 * time.Hour)
	c := &Counts{}
	targets := []struct {
		dst    *int64
		filter bson.M
	}{
		{&c.Total, bson.M{}},
		{&c.PendingVerification, bson.M{"verified": false, "isValid": true}},
		{&c.Verified, bson.M{"verified": true}},
		{&c.PendingDetails, bson.M{"verified": true, "isValid": true, "detailsLoaded": false}},
		{&c.DetailsLoaded, bson.M{"detailsLoaded": true}},
		{&c.Invalid, bson.M{"isValid": false}},
		{&c.Private, bson.M{"isPrivate": true}},
		{&c.Locked, lease.HeldFilter(now)},
		{&c.Stuck, lease.StuckFilter(now)},
		{&c.RecentlyProcessed, bson.M{"$or": bson.A{
			bson.M{"verifiedAt": bson.M{"$gte": since}},
			bson.M{"detailsLastUpdate": bson.M{"$gte": since}},
		}}},
		{&c.WithErrors, bson.M{"errorCount": bson.M{"$gt": 0}}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			n, err := r.collection.CountDocuments(gctx, target.filter)
			if err != nil {
				return fmt.Errorf("failed to count causas: %w", err)
			}
			*target.dst = n
			return nil
		})
	}
	g.Go(func() error {
		dist, err := r.errorDistribution(gctx)
		if err != nil {
			return err
		}
		c.ErrorDistribution = dist
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *mongoWorkerRepository) errorDistribution(ctx context.Context) ([]model.ErrorBucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"errorCount": bson.M{"$gt": 0}}}},
		{{Key: "$group", Value: bson.M{"_id": "$errorCount", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate error distribution: %w", err)
	}
	defer cursor.Close(ctx)

	buckets := []model.ErrorBucket{}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode error distribution: %w", err)
	}
	return buckets, nil
}

func (r *mongoWorkerRepository) Eligibility(ctx context.Context, maxErrors int, now time.Time) (*model.Eligibility, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	e := &model.Eligibility{MaxErrors: maxErrors, Timestamp: now}
	queues := []struct {
		dst  *model.QueueEligibility
		base bson.M
	}{
		{&e.PendingVerification, VerificationQueueFilter()},
		{&e.PendingUpdate, UpdateQueueFilter()},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queues {
		counts := []struct {
			dst    *int64
			filter bson.M
		}{
			{&q.dst.Eligible, eligible(q.base, maxErrors, now)},
			{&q.dst.Locked, withClauses(q.base, lease.HeldFilter(now))},
			{&q.dst.ErrorCapped, withClauses(q.base, bson.M{"errorCount": bson.M{"$gte": maxErrors}})},
		}
		for _, c := range counts {
			g.Go(func() error {
				n, err := r.collection.CountDocuments(gctx, c.filter)
				if err != nil {
					return fmt.Errorf("failed to count eligibility: %w", err)
				}
				*c.dst = n
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *mongoWorkerRepository) RecentlyVerified(ctx context.Context, since time.Time, limit int) ([]*model.CausaSummary, error) {
	return r.recent(ctx, "verifiedAt", since, limit)
}

func (r *mongoWorkerRepository) RecentlyUpdated(ctx context.Context, since time.Time, limit int) ([]*model.CausaSummary, error) {
	return r.recent(ctx, "detailsLastUpdate", since, limit)
}

func (r *mongoWorkerRepository) recent(ctx context.Context, field string, since time.Time, limit int) ([]*model.CausaSummary, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(summaryProjection)

	cursor, err := r.collection.Find(ctx, bson.M{field: bson.M{"$gte": since}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*model.CausaSummary{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode recent activity: %w", err)
	}
	return out, nil
}

func (r *mongoWorkerRepository) FindWithErrors(ctx context.Context, limit int, offset int64) ([]*model.CausaSummary, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "errorCount", Value: -1}, {Key: "updatedAt", Value: -1}}).
		SetSkip(offset).
		SetLimit(int64(limit)).
		SetProjection(summaryProjection)

	cursor, err := r.collection.Find(ctx, bson.M{"errorCount": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query causas with errors: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*model.CausaSummary{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode causas with errors: %w", err)
	}
	return out, nil
}

func (r *mongoWorkerRepository) CountWithErrors(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{"errorCount": bson.M{"$gt": 0}})
	if err != nil {
		return 0, fmt.Errorf("failed to count causas with errors: %w", err)
	}
	return n, nil
}

func (r *mongoWorkerRepository) ResetError(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", workerserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set":   bson.M{"errorCount": 0, "lastError": nil, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"stuckSince": ""},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to reset causa errors: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", workerserrors.ErrNotFound, id)
	}
	return nil
}
