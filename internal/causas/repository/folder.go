package repository

import (
	"context"
	"fmt"

	causaserrors "ejeapi/internal/causas/errors"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoCausaRepository) AddFolder(ctx context.Context, id primitive.ObjectID, folderID primitive.ObjectID, userID *primitive.ObjectID, entry model.UpdateHistoryEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	addToSet := bson.M{"folderIds": folderID}
	if userID != nil {
		addToSet["userCausaIds"] = *userID
	}
	update := bson.M{
		"$addToSet": addToSet,
		"$push":     bson.M{"updateHistory": entry},
		"$set":      bson.M{"updatedAt": now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to associate folder: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", causaserrors.ErrNotFound, id.Hex())
	}
	return nil
}

func (r *mongoCausaRepository) RemoveFolder(ctx context.Context, id primitive.ObjectID, folderID primitive.ObjectID, userID *primitive.ObjectID, entry model.UpdateHistoryEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	pull := bson.M{"folderIds": folderID}
	if userID != nil {
		pull["userCausaIds"] = *userID
		pull["userUpdatesEnabled"] = bson.M{"userId": *userID}
	}
	update := bson.M{
		"$pull": pull,
		"$push": bson.M{"updateHistory": entry},
		"$set":  bson.M{"updatedAt": now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to dissociate folder: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", causaserrors.ErrNotFound, id.Hex())
	}
	return nil
}

func (r *mongoCausaRepository) FindOneByFolder(ctx context.Context, folderID primitive.ObjectID) (*model.Causa, error) {
	return r.findOne(ctx, bson.M{"folderIds": folderID}, folderID.Hex())
}

// SetUserPreference upserts the user's entry and recomputes the aggregate
// update flag server-side, returning the new flag.
func (r *mongoCausaRepository) SetUserPreference(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID, enabled bool) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "userUpdatesEnabled.userId": userID},
		bson.M{"$set": bson.M{"userUpdatesEnabled.$.enabled": enabled}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update user preference: %w", err)
	}
	if result.MatchedCount == 0 {
		result, err = r.collection.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$push": bson.M{"userUpdatesEnabled": model.UserUpdatePreference{UserID: userID, Enabled: enabled}}},
		)
		if err != nil {
			return false, fmt.Errorf("failed to add user preference: %w", err)
		}
		if result.MatchedCount == 0 {
			return false, fmt.Errorf("%w: %s", causaserrors.ErrNotFound, id.Hex())
		}
	}

	recompute := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"update": bson.M{"$anyElementTrue": bson.A{
				bson.M{"$ifNull": bson.A{"$userUpdatesEnabled.enabled", bson.A{}}},
			}},
			"updatedAt": now(),
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"update": 1})

	var doc struct {
		Update bool `bson:"update"`
	}
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, recompute, opts).Decode(&doc); err != nil {
		return false, fmt.Errorf("failed to recompute update flag: %w", err)
	}
	return doc.Update, nil
}
