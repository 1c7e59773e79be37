package service

import (
	"context"
	"errors"
	"fmt"

	causaserrors "ejeapi/internal/causas/errors"
	"ejeapi/internal/events"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"
	"ejeapi/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const pendingCaratulaPrefix = "Pendiente de verificación: "

func optionalObjectID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

// findForAssociation tries causaId, cuij and numero/anio in turn and returns
// the first match, or nil when none matches.
func (s *causaService) findForAssociation(ctx context.Context, req *model.FolderAssociation) (*model.Causa, error) {
	type lookup struct {
		ok   bool
		find func() (*model.Causa, error)
	}
	lookups := []lookup{
		{req.CausaID != "", func() (*model.Causa, error) { return s.repo.FindByID(ctx, req.CausaID) }},
		{req.Cuij != "", func() (*model.Causa, error) { return s.repo.FindByExactCuij(ctx, req.Cuij) }},
		{req.Numero > 0 && req.Anio > 0, func() (*model.Causa, error) { return s.repo.FindByNumeroAnio(ctx, req.Numero, req.Anio) }},
	}
	for _, l := range lookups {
		if !l.ok {
			continue
		}
		c, err := l.find()
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, causaserrors.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *causaService) AssociateFolder(ctx context.Context, req *model.FolderAssociation) (*model.FolderAssociationResult, error) {
	req.Cuij = sanitizer.CleanCuij(req.Cuij)
	req.SearchTerm = sanitizer.TrimAndNormalize(req.SearchTerm)
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed("Folder association validation failed", err)
	}
	if !req.HasLookup() {
		return nil, apperrors.BadRequest("causaId, cuij or numero/anio is required")
	}

	folderID, _ := primitive.ObjectIDFromHex(req.FolderID)
	userID, _ := optionalObjectID(req.UserID)
	now := s.now()

	existing, err := s.findForAssociation(ctx, req)
	if err != nil {
		s.cfg.Log.Error("Failed to look up causa for folder association", "folder_id", req.FolderID, "error", err)
		return nil, apperrors.Internal("Failed to associate folder", err)
	}

	if existing != nil {
		entry := model.UpdateHistoryEntry{
			Timestamp:        now,
			Source:           model.SourceAPI,
			UpdateType:       model.UpdateTypeLink,
			Success:          true,
			MovimientosTotal: len(existing.Movimientos),
			Details: map[string]any{
				"folderId":   req.FolderID,
				"userId":     req.UserID,
				"searchTerm": req.SearchTerm,
			},
		}
		if err := s.repo.AddFolder(ctx, existing.ID, folderID, userID, entry); err != nil {
			if appErr, ok := lookupError(err, existing.ID.Hex()); ok {
				return nil, appErr
			}
			s.cfg.Log.Error("Failed to associate folder", "causa_id", existing.ID.Hex(), "folder_id", req.FolderID, "error", err)
			return nil, apperrors.Internal("Failed to associate folder", err)
		}

		s.cfg.Log.Info("Folder associated", "causa_id", existing.ID.Hex(), "folder_id", req.FolderID)
		s.publishFolderEvent(ctx, events.TypeFolderAssociated, existing.ID.Hex(), req.FolderID, req.UserID)
		return &model.FolderAssociationResult{Created: false, CausaID: existing.ID.Hex(), Cuij: existing.Cuij}, nil
	}

	if req.Cuij == "" && req.Numero <= 0 {
		return nil, apperrors.NotFoundWithID("Causa", req.CausaID)
	}

	c := s.pendingCausa(req, folderID, userID)
	if err := s.repo.Create(ctx, c); err != nil {
		s.cfg.Log.Error("Failed to create causa from folder association", "cuij", c.Cuij, "folder_id", req.FolderID, "error", err)
		return nil, apperrors.Internal("Failed to associate folder", err)
	}

	s.cfg.Log.Info("Causa created from folder association", "causa_id", c.ID.Hex(), "cuij", c.Cuij, "folder_id", req.FolderID)
	s.publisher.Publish(ctx, events.New(events.TypeCausaCreated, c.ID.Hex(), map[string]any{
		"cuij":   c.Cuij,
		"source": c.Source,
	}))
	s.publishFolderEvent(ctx, events.TypeFolderAssociated, c.ID.Hex(), req.FolderID, req.UserID)
	return &model.FolderAssociationResult{Created: true, CausaID: c.ID.Hex(), Cuij: c.Cuij}, nil
}

// pendingCausa builds the placeholder record created when a folder names a
// causa the system has not seen yet. Workers verify it later.
func (s *causaService) pendingCausa(req *model.FolderAssociation, folderID primitive.ObjectID, userID *primitive.ObjectID) *model.Causa {
	now := s.now()

	numero, anio := req.Numero, req.Anio
	if req.Cuij != "" && (numero <= 0 || anio <= 0) {
		if n, y, ok := sanitizer.ParseCuij(req.Cuij); ok {
			numero, anio = n, y
		}
	}

	cuij := req.Cuij
	if cuij == "" {
		cuij = fmt.Sprintf("PENDING-%d/%d", req.Numero, req.Anio)
	}

	label := req.SearchTerm
	if label == "" {
		label = req.Cuij
	}
	if label == "" {
		label = fmt.Sprintf("%d/%d", req.Numero, req.Anio)
	}

	userIDs := []primitive.ObjectID{}
	if userID != nil {
		userIDs = append(userIDs, *userID)
	}

	return &model.Causa{
		Cuij:               cuij,
		Numero:             numero,
		Anio:               anio,
		Caratula:           pendingCaratulaPrefix + label,
		Source:             model.SourceApp,
		Verified:           false,
		IsValid:            nil,
		DetailsLoaded:      false,
		SearchTerm:         req.SearchTerm,
		FolderIDs:          []primitive.ObjectID{folderID},
		UserCausaIDs:       userIDs,
		UserUpdatesEnabled: []model.UserUpdatePreference{},
		UpdateHistory: []model.UpdateHistoryEntry{{
			Timestamp:  now,
			Source:     model.SourceAPI,
			UpdateType: model.UpdateTypeLink,
			Success:    true,
			Details: map[string]any{
				"folderId":   req.FolderID,
				"userId":     req.UserID,
				"searchTerm": req.SearchTerm,
				"message":    "Causa created from folder association",
			},
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *causaService) DissociateFolder(ctx context.Context, req *model.FolderDissociation) error {
	if err := s.validator.Validate(req); err != nil {
		return validationFailed("Folder dissociation validation failed", err)
	}

	c, err := s.GetByID(ctx, req.CausaID)
	if err != nil {
		return err
	}

	folderID, _ := primitive.ObjectIDFromHex(req.FolderID)
	userID, _ := optionalObjectID(req.UserID)
	entry := model.UpdateHistoryEntry{
		Timestamp:        s.now(),
		Source:           model.SourceAPI,
		UpdateType:       model.UpdateTypeUnlink,
		Success:          true,
		MovimientosTotal: len(c.Movimientos),
		Details: map[string]any{
			"folderId": req.FolderID,
			"userId":   req.UserID,
		},
	}

	if err := s.repo.RemoveFolder(ctx, c.ID, folderID, userID, entry); err != nil {
		if appErr, ok := lookupError(err, req.CausaID); ok {
			return appErr
		}
		s.cfg.Log.Error("Failed to dissociate folder", "causa_id", req.CausaID, "folder_id", req.FolderID, "error", err)
		return apperrors.Internal("Failed to dissociate folder", err)
	}

	s.cfg.Log.Info("Folder dissociated", "causa_id", req.CausaID, "folder_id", req.FolderID)
	s.publishFolderEvent(ctx, events.TypeFolderDissociated, req.CausaID, req.FolderID, req.UserID)
	return nil
}

func (s *causaService) FindByFolder(ctx context.Context, folderID string) (*model.Causa, error) {
	oid, err := primitive.ObjectIDFromHex(folderID)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid folder ID format")
	}

	c, err := s.repo.FindOneByFolder(ctx, oid)
	if err != nil {
		if errors.Is(err, causaserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Causa for folder")
		}
		s.cfg.Log.Error("Failed to find causa by folder", "folder_id", folderID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve causa", err)
	}
	return c, nil
}

func (s *causaService) UpdatePreference(ctx context.Context, req *model.PreferenceUpdate) (*model.PreferenceResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed("Preference validation failed", err)
	}

	causaID, _ := primitive.ObjectIDFromHex(req.CausaID)
	userID, _ := primitive.ObjectIDFromHex(req.UserID)

	updateEnabled, err := s.repo.SetUserPreference(ctx, causaID, userID, *req.Enabled)
	if err != nil {
		if appErr, ok := lookupError(err, req.CausaID); ok {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to update preference", "causa_id", req.CausaID, "user_id", req.UserID, "error", err)
		return nil, apperrors.Internal("Failed to update preference", err)
	}

	s.cfg.Log.Info("Update preference changed",
		"causa_id", req.CausaID,
		"user_id", req.UserID,
		"enabled", *req.Enabled,
		"update_enabled", updateEnabled,
	)
	return &model.PreferenceResult{CausaID: req.CausaID, UpdateEnabled: updateEnabled}, nil
}

func (s *causaService) publishFolderEvent(ctx context.Context, eventType, causaID, folderID, userID string) {
	data := map[string]any{"folderId": folderID}
	if userID != "" {
		data["userId"] = userID
	}
	s.publisher.Publish(ctx, events.New(eventType, causaID, data))
}
