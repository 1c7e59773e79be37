package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	collection *mongo.Collection
	timeout    time.Duration
}

func NewMongoStore(collection *mongo.Collection, timeout time.Duration) Store {
	return &mongoStore{
		collection: collection,
		timeout:    timeout,
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return oid, nil
}

func (s *mongoStore) ClaimIfAvailable(ctx context.Context, causaID, workerID string, now time.Time) (int64, bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	oid, err := parseID(causaID)
	if err != nil {
		return 0, false, err
	}

	filter := bson.M{"_id": oid, "$or": AvailableClauses(now)}
	update := bson.M{
		"$set": bson.M{"lockedBy": workerID, "lockedAt": now},
		"$inc": bson.M{"lockToken": int64(1)},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"lockToken": 1})

	var doc struct {
		LockToken int64 `bson:"lockToken"`
	}
	err = s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to claim lease: %w", err)
	}
	return doc.LockToken, true, nil
}

func (s *mongoStore) Clear(ctx context.Context, causaID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	oid, err := parseID(causaID)
	if err != nil {
		return err
	}
	if _, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, UnsetUpdate()); err != nil {
		return fmt.Errorf("failed to clear lease: %w", err)
	}
	return nil
}

func (s *mongoStore) Holder(ctx context.Context, causaID string) (*Lease, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	oid, err := parseID(causaID)
	if err != nil {
		return nil, err
	}

	var doc struct {
		LockedBy  string     `bson:"lockedBy"`
		LockedAt  *time.Time `bson:"lockedAt"`
		LockToken int64      `bson:"lockToken"`
	}
	opts := options.FindOne().SetProjection(bson.M{"lockedBy": 1, "lockedAt": 1, "lockToken": 1})
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lease: %w", err)
	}
	if doc.LockedBy == "" {
		return nil, nil
	}

	l := &Lease{CausaID: causaID, WorkerID: doc.LockedBy, Token: doc.LockToken}
	if doc.LockedAt != nil {
		l.AcquiredAt = *doc.LockedAt
	}
	return l, nil
}

func (s *mongoStore) FindStuck(ctx context.Context, now time.Time) ([]*model.CausaSummary, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "lockedAt", Value: 1}}).
		SetProjection(bson.M{
			"cuij": 1, "numero": 1, "anio": 1, "caratula": 1,
			"lockedBy": 1, "lockedAt": 1, "verified": 1, "detailsLoaded": 1, "errorCount": 1,
		})
	cursor, err := s.collection.Find(ctx, StuckFilter(now), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck leases: %w", err)
	}
	defer cursor.Close(ctx)

	stuck := []*model.CausaSummary{}
	if err := cursor.All(ctx, &stuck); err != nil {
		return nil, fmt.Errorf("failed to decode stuck leases: %w", err)
	}
	return stuck, nil
}

func (s *mongoStore) ClearStuck(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.collection.UpdateMany(ctx, StuckFilter(now), UnsetUpdate())
	if err != nil {
		return 0, fmt.Errorf("failed to clear stuck leases: %w", err)
	}
	return result.ModifiedCount, nil
}
