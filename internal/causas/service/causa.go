package service

import (
	"context"
	"errors"
	"time"

	causaserrors "ejeapi/internal/causas/errors"
	"ejeapi/internal/causas/repository"
	"ejeapi/internal/causas/validator"
	"ejeapi/internal/events"
	"ejeapi/pkg/config"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"
	"ejeapi/pkg/sanitizer"
	"ejeapi/pkg/validation"

	"golang.org/x/sync/errgroup"
)

type CausaService interface {
	Stats(ctx context.Context) (*model.CausaStats, error)
	Search(ctx context.Context, q model.CausaSearch, page, limit int) ([]*model.Causa, int64, error)
	ByFolder(ctx context.Context, folderID string, page, limit int) ([]*model.Causa, int64, error)
	ByUser(ctx context.Context, userID string, page, limit int) ([]*model.Causa, int64, error)

	GetByID(ctx context.Context, id string) (*model.Causa, error)
	GetByCuij(ctx context.Context, cuij string) (*model.Causa, error)
	GetByNumeroAnio(ctx context.Context, numero, anio int) (*model.Causa, error)
	Movimientos(ctx context.Context, id string, page, limit int) (*MovimientosPage, error)
	Intervinientes(ctx context.Context, id string) (*model.Causa, error)
	Relacionadas(ctx context.Context, id string) (*model.Causa, error)

	CreateOrUpdate(ctx context.Context, in *model.CausaInput) (*model.Causa, bool, error)
	Update(ctx context.Context, id string, in *model.CausaInput) (*model.Causa, error)
	Delete(ctx context.Context, id string) (*model.Causa, error)

	AssociateFolder(ctx context.Context, req *model.FolderAssociation) (*model.FolderAssociationResult, error)
	DissociateFolder(ctx context.Context, req *model.FolderDissociation) error
	FindByFolder(ctx context.Context, folderID string) (*model.Causa, error)
	UpdatePreference(ctx context.Context, req *model.PreferenceUpdate) (*model.PreferenceResult, error)

	LinkedCausas(ctx context.Context, id string) ([]*model.Causa, error)
	ResolvePivot(ctx context.Context, pivotID string, req *model.ResolvePivotRequest) (*model.ResolvePivotResult, error)
}

type MovimientosPage struct {
	Cuij        string             `json:"cuij"`
	Movimientos []model.Movimiento `json:"movimientos"`
	Total       int64              `json:"-"`
	Page        int                `json:"-"`
	Limit       int                `json:"-"`
}

type causaService struct {
	repo      repository.CausaRepository
	validator *validator.CausaValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewCausaService(
	repo repository.CausaRepository,
	validator *validator.CausaValidator,
	publisher events.Publisher,
	cfg *config.Config,
) CausaService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &causaService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// lookupError maps repository errors to API errors. The bool is false for
// unexpected failures that the caller should log.
func lookupError(err error, id string) (error, bool) {
	switch {
	case errors.Is(err, causaserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Causa", id), true
	case errors.Is(err, causaserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid causa ID format"), true
	}
	return nil, false
}

func validationFailed(message string, err error) error {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.InvalidInput(message)
}

func (s *causaService) Stats(ctx context.Context) (*model.CausaStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to compute causa stats", "error", err)
		return nil, apperrors.Internal("Failed to compute causa statistics", err)
	}
	return stats, nil
}

func (s *causaService) Search(ctx context.Context, q model.CausaSearch, page, limit int) ([]*model.Causa, int64, error) {
	if q.SortBy != "" && !repository.IsSortable(q.SortBy) {
		return nil, 0, apperrors.InvalidInput("invalid sortBy field: " + q.SortBy)
	}
	q.Cuij = sanitizer.CleanCuij(q.Cuij)

	filter, err := repository.BuildFilter(q)
	if err != nil {
		return nil, 0, apperrors.InvalidInput(err.Error())
	}

	page = config.NormalizePage(page)
	limit = s.cfg.NormalizePageLimit(limit)
	offset := int64(page-1) * int64(limit)
	sort := repository.BuildSort(q)

	var causas []*model.Causa
	var total int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		causas, err = s.repo.Search(gctx, filter, sort, limit, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		s.cfg.Log.Error("Failed to search causas",
			"page", page,
			"limit", limit,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to search causas", err)
	}

	return causas, total, nil
}

func (s *causaService) ByFolder(ctx context.Context, folderID string, page, limit int) ([]*model.Causa, int64, error) {
	return s.Search(ctx, model.CausaSearch{FolderID: folderID, SortBy: "updatedAt", SortOrder: "desc"}, page, limit)
}

func (s *causaService) ByUser(ctx context.Context, userID string, page, limit int) ([]*model.Causa, int64, error) {
	return s.Search(ctx, model.CausaSearch{UserID: userID, SortBy: "updatedAt", SortOrder: "desc"}, page, limit)
}

func (s *causaService) GetByID(ctx context.Context, id string) (*model.Causa, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Causa ID cannot be empty")
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if appErr, ok := lookupError(err, id); ok {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to get causa by ID", "causa_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve causa", err)
	}
	return c, nil
}

func (s *causaService) GetByCuij(ctx context.Context, cuij string) (*model.Causa, error) {
	cleaned := sanitizer.CleanCuij(cuij)
	if cleaned == "" {
		return nil, apperrors.InvalidInput("CUIJ cannot be empty")
	}

	c, err := s.repo.FindByCuij(ctx, cleaned)
	if err != nil {
		if appErr, ok := lookupError(err, cleaned); ok {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to get causa by CUIJ", "cuij", cleaned, "error", err)
		return nil, apperrors.Internal("Failed to retrieve causa", err)
	}
	return c, nil
}

func (s *causaService) GetByNumeroAnio(ctx context.Context, numero, anio int) (*model.Causa, error) {
	if numero <= 0 || anio <= 0 {
		return nil, apperrors.InvalidInput("number and year must be positive integers")
	}

	c, err := s.repo.FindByNumeroAnio(ctx, numero, anio)
	if err != nil {
		if errors.Is(err, causaserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Causa")
		}
		s.cfg.Log.Error("Failed to get causa by number and year", "numero", numero, "anio", anio, "error", err)
		return nil, apperrors.Internal("Failed to retrieve causa", err)
	}
	return c, nil
}

func (s *causaService) section(ctx context.Context, id string, fields ...string) (*model.Causa, error) {
	c, err := s.repo.FindSection(ctx, id, fields...)
	if err != nil {
		if appErr, ok := lookupError(err, id); ok {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to get causa section", "causa_id", id, "fields", fields, "error", err)
		return nil, apperrors.Internal("Failed to retrieve causa", err)
	}
	return c, nil
}

// Movimientos pages through the embedded movimientos array in memory.
func (s *causaService) Movimientos(ctx context.Context, id string, page, limit int) (*MovimientosPage, error) {
	c, err := s.section(ctx, id, "movimientos", "movimientosCount")
	if err != nil {
		return nil, err
	}

	page = config.NormalizePage(page)
	limit = s.cfg.NormalizePageLimit(limit)
	start := min((page-1)*limit, len(c.Movimientos))
	end := min(start+limit, len(c.Movimientos))

	return &MovimientosPage{
		Cuij:        c.Cuij,
		Movimientos: append([]model.Movimiento{}, c.Movimientos[start:end]...),
		Total:       int64(len(c.Movimientos)),
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *causaService) Intervinientes(ctx context.Context, id string) (*model.Causa, error) {
	return s.section(ctx, id, "intervinientes")
}

func (s *causaService) Relacionadas(ctx context.Context, id string) (*model.Causa, error) {
	return s.section(ctx, id, "causasRelacionadas")
}

// CreateOrUpdate upserts by cuij, falling back to numero/anio. The bool
// reports whether a new record was inserted.
func (s *causaService) CreateOrUpdate(ctx context.Context, in *model.CausaInput) (*model.Causa, bool, error) {
	sanitizer.SanitizeCausaInput(in)
	if !in.HasIdentity() {
		return nil, false, apperrors.BadRequest("CUIJ or numero/anio is required")
	}
	if err := s.validator.ValidateInput(in); err != nil {
		s.cfg.Log.Warn("Causa validation failed", "error", err)
		return nil, false, validationFailed("Causa validation failed", err)
	}

	var existing *model.Causa
	var err error
	if in.Cuij != nil && *in.Cuij != "" {
		existing, err = s.repo.FindByExactCuij(ctx, *in.Cuij)
	} else {
		existing, err = s.repo.FindByNumeroAnio(ctx, *in.Numero, *in.Anio)
	}
	if err != nil && !errors.Is(err, causaserrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to look up causa", "error", err)
		return nil, false, apperrors.Internal("Failed to look up causa", err)
	}

	if existing != nil {
		updated, err := s.repo.Update(ctx, existing.ID.Hex(), in.SetFields())
		if err != nil {
			s.cfg.Log.Error("Failed to update causa", "causa_id", existing.ID.Hex(), "error", err)
			return nil, false, apperrors.Internal("Failed to update causa", err)
		}
		s.cfg.Log.Info("Causa updated", "causa_id", updated.ID.Hex(), "cuij", updated.Cuij)
		return updated, false, nil
	}

	c := in.NewCausa(s.now())
	if err := s.repo.Create(ctx, c); err != nil {
		s.cfg.Log.Error("Failed to create causa", "cuij", c.Cuij, "error", err)
		return nil, false, apperrors.Internal("Failed to create causa", err)
	}

	s.cfg.Log.Info("Causa created", "causa_id", c.ID.Hex(), "cuij", c.Cuij, "source", c.Source)
	s.publisher.Publish(ctx, events.New(events.TypeCausaCreated, c.ID.Hex(), map[string]any{
		"cuij":   c.Cuij,
		"source": c.Source,
	}))
	return c, true, nil
}

func (s *causaService) Update(ctx context.Context, id string, in *model.CausaInput) (*model.Causa, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Causa ID cannot be empty")
	}

	sanitizer.SanitizeCausaInput(in)
	if err := s.validator.ValidateInput(in); err != nil {
		s.cfg.Log.Warn("Causa update validation failed", "causa_id", id, "error", err)
		return nil, validationFailed("Causa validation failed", err)
	}

	set := in.SetFields()
	if len(set) == 0 {
		return nil, apperrors.BadRequest("No valid fields to update")
	}

	c, err := s.repo.Update(ctx, id, set)
	if err != nil {
		if appErr, ok := lookupError(err, id); ok {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to update causa", "causa_id", id, "error", err)
		return nil, apperrors.Internal("Failed to update causa", err)
	}

	s.cfg.Log.Info("Causa updated", "causa_id", id, "cuij", c.Cuij, "fields", len(set))
	return c, nil
}

func (s *causaService) Delete(ctx context.Context, id string) (*model.Causa, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Causa ID cannot be empty")
	}

	c, err := s.repo.Delete(ctx, id)
	if err != nil {
		if appErr, ok := lookupError(err, id); ok {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to delete causa", "causa_id", id, "error", err)
		return nil, apperrors.Internal("Failed to delete causa", err)
	}

	s.cfg.Log.Info("Causa deleted", "causa_id", id, "cuij", c.Cuij)
	s.publisher.Publish(ctx, events.New(events.TypeCausaDeleted, id, map[string]any{"cuij": c.Cuij}))
	return c, nil
}
