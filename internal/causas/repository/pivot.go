package repository

import (
	"context"
	"fmt"
	"time"

	causaserrors "ejeapi/internal/causas/errors"
	mongotx "ejeapi/pkg/db/mongo"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MergeInto adds the pivot's folders and users to the target and replaces
// its preference list with the merged one.
func (r *mongoCausaRepository) MergeInto(ctx context.Context, targetID primitive.ObjectID, folderIDs, userIDs []primitive.ObjectID, prefs []model.UserUpdatePreference, entry model.UpdateHistoryEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$addToSet": bson.M{
			"folderIds":    bson.M{"$each": nonNil(folderIDs)},
			"userCausaIds": bson.M{"$each": nonNil(userIDs)},
		},
		"$set": bson.M{
			"userUpdatesEnabled": prefs,
			"update":             model.AnyUpdateEnabled(prefs),
			"updatedAt":          now(),
		},
		"$push": bson.M{"updateHistory": entry},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": targetID}, update)
	if err != nil {
		return fmt.Errorf("failed to merge pivot into target: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", causaserrors.ErrNotFound, targetID.Hex())
	}
	return nil
}

// MarkResolved flags the pivot as resolved unless another request already
// did. It reports whether this call performed the transition.
func (r *mongoCausaRepository) MarkResolved(ctx context.Context, pivotID, targetID primitive.ObjectID, at time.Time) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": pivotID, "resolved": bson.M{"$ne": true}}
	update := bson.M{
		"$set": bson.M{
			"resolved":           true,
			"resolvedTo":         targetID,
			"resolvedAt":         at,
			"folderIds":          bson.A{},
			"userCausaIds":       bson.A{},
			"userUpdatesEnabled": bson.A{},
			"update":             false,
			"updatedAt":          at,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to resolve pivot: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
