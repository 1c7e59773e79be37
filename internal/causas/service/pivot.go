package service

import (
	"context"
	"errors"

	"ejeapi/internal/events"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

func (s *causaService) LinkedCausas(ctx context.Context, id string) ([]*model.Causa, error) {
	pivot, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pivot.IsPivot {
		return nil, apperrors.BadRequest("Causa is not a pivot")
	}
	if len(pivot.PivotCausaIDs) == 0 {
		return []*model.Causa{}, nil
	}

	linked, err := s.repo.FindByIDs(ctx, pivot.PivotCausaIDs)
	if err != nil {
		s.cfg.Log.Error("Failed to load linked causas", "causa_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve linked causas", err)
	}
	return linked, nil
}

// ResolvePivot moves the pivot's folders, users and update preferences onto
// the chosen target and marks the pivot resolved, all in one transaction.
func (s *causaService) ResolvePivot(ctx context.Context, pivotID string, req *model.ResolvePivotRequest) (*model.ResolvePivotResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed("Resolve pivot validation failed", err)
	}

	var result *model.ResolvePivotResult
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := s.resolvePivot(sessCtx, pivotID, req.TargetCausaID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to resolve pivot",
			"pivot_id", pivotID,
			"target_id", req.TargetCausaID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to resolve pivot", err)
	}

	s.cfg.Log.Info("Pivot resolved",
		"pivot_id", result.PivotID,
		"target_id", result.TargetCausaID,
		"folders_moved", result.FoldersMoved,
		"users_moved", result.UsersMoved,
	)
	s.publisher.Publish(ctx, events.New(events.TypePivotResolved, result.PivotID, map[string]any{
		"targetCausaId": result.TargetCausaID,
		"foldersMoved":  result.FoldersMoved,
		"usersMoved":    result.UsersMoved,
	}))
	return result, nil
}

func (s *causaService) resolvePivot(ctx context.Context, pivotID, targetID string) (*model.ResolvePivotResult, error) {
	pivot, err := s.GetByID(ctx, pivotID)
	if err != nil {
		return nil, err
	}
	if !pivot.IsPivot {
		return nil, apperrors.BadRequest("Causa is not a pivot")
	}
	if pivot.Resolved {
		return nil, apperrors.Conflict("Pivot has already been resolved")
	}

	target, err := s.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == pivot.ID {
		return nil, apperrors.BadRequest("Target causa must differ from the pivot")
	}
	if target.IsPivot {
		return nil, apperrors.BadRequest("Target causa cannot be a pivot")
	}

	now := s.now()
	foldersMoved, usersMoved := len(pivot.FolderIDs), len(pivot.UserCausaIDs)
	prefs := model.MergePreferences(target.UserUpdatesEnabled, pivot.UserUpdatesEnabled)
	entry := model.UpdateHistoryEntry{
		Timestamp:        now,
		Source:           model.SourceAPI,
		UpdateType:       model.UpdateTypeLink,
		Success:          true,
		MovimientosTotal: len(target.Movimientos),
		Details: map[string]any{
			"pivotId":      pivot.ID.Hex(),
			"foldersMoved": foldersMoved,
			"usersMoved":   usersMoved,
			"message":      "Pivot resolved into causa",
		},
	}

	if err := s.repo.MergeInto(ctx, target.ID, pivot.FolderIDs, pivot.UserCausaIDs, prefs, entry); err != nil {
		return nil, err
	}

	ok, err := s.repo.MarkResolved(ctx, pivot.ID, target.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("Pivot has already been resolved")
	}

	return &model.ResolvePivotResult{
		PivotID:           pivot.ID.Hex(),
		TargetCausaID:     target.ID.Hex(),
		FoldersMoved:      foldersMoved,
		UsersMoved:        usersMoved,
		PreferencesMerged: len(prefs),
	}, nil
}
