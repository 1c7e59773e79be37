package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ejeapi/internal/lease"
	workerserrors "ejeapi/internal/workers/errors"
	"ejeapi/internal/workers/repository"
	"ejeapi/pkg/config"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"
)

const (
	activityLimit        = 20
	defaultActivityHours = 24
	maxActivityHours     = 24 * 30
)

// LeaseLocker is the subset of lease.Locker used by the worker endpoints.
type LeaseLocker interface {
	Acquire(ctx context.Context, causaID, workerID string) (lease.Lease, bool)
	Release(ctx context.Context, causaID string) bool
	Verify(ctx context.Context, causaID, workerID string, token int64) bool
	Stuck(ctx context.Context) ([]*model.CausaSummary, error)
	ClearStuck(ctx context.Context) (int64, error)
}

type WorkerService interface {
	PendingVerification(ctx context.Context, limit int) ([]*model.Causa, error)
	PendingUpdate(ctx context.Context, limit int) ([]*model.Causa, error)

	Lock(ctx context.Context, causaID, workerID string) (*lease.Lease, bool, error)
	Unlock(ctx context.Context, causaID string) bool
	VerifyLock(ctx context.Context, causaID, workerID string, token int64) (bool, error)

	Stats(ctx context.Context) (*model.WorkerStats, error)
	Activity(ctx context.Context, hours int) (*model.ActivityReport, error)
	Eligibility(ctx context.Context) (*model.Eligibility, error)
	Errors(ctx context.Context, page, limit int) ([]*model.CausaSummary, int64, error)
	Stuck(ctx context.Context) ([]*model.CausaSummary, error)
	ClearStuck(ctx context.Context) (int64, error)
	ResetError(ctx context.Context, id string) error
}

type workerService struct {
	repo   repository.WorkerRepository
	locker LeaseLocker
	cfg    *config.Config
	now    func() time.Time
}

func NewWorkerService(repo repository.WorkerRepository, locker LeaseLocker, cfg *config.Config) WorkerService {
	return &workerService{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *workerService) queueLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.PendingQueueLimit
	}
	return min(limit, s.cfg.MaxPageLimit)
}

func (s *workerService) PendingVerification(ctx context.Context, limit int) ([]*model.Causa, error) {
	causas, err := s.repo.PendingVerification(ctx, s.cfg.MaxWorkerErrors, s.queueLimit(limit), s.now())
	if err != nil {
		s.cfg.Log.Error("Failed to get pending verification queue", "error", err)
		return nil, apperrors.Internal("Failed to retrieve pending verification queue", err)
	}
	return causas, nil
}

func (s *workerService) PendingUpdate(ctx context.Context, limit int) ([]*model.Causa, error) {
	causas, err := s.repo.PendingUpdate(ctx, s.cfg.MaxWorkerErrors, s.queueLimit(limit), s.now())
	if err != nil {
		s.cfg.Log.Error("Failed to get pending update queue", "error", err)
		return nil, apperrors.Internal("Failed to retrieve pending update queue", err)
	}
	return causas, nil
}

func (s *workerService) Lock(ctx context.Context, causaID, workerID string) (*lease.Lease, bool, error) {
	if workerID == "" {
		return nil, false, apperrors.InvalidInput("workerId is required")
	}
	l, ok := s.locker.Acquire(ctx, causaID, workerID)
	if !ok {
		return nil, false, nil
	}
	return &l, true, nil
}

func (s *workerService) Unlock(ctx context.Context, causaID string) bool {
	return s.locker.Release(ctx, causaID)
}

func (s *workerService) VerifyLock(ctx context.Context, causaID, workerID string, token int64) (bool, error) {
	if workerID == "" {
		return false, apperrors.InvalidInput("workerId is required")
	}
	if token <= 0 {
		return false, apperrors.InvalidInput("token must be positive")
	}
	return s.locker.Verify(ctx, causaID, workerID, token), nil
}

// percent returns part/whole as a percentage rounded to one decimal.
func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

func (s *workerService) Stats(ctx context.Context) (*model.WorkerStats, error) {
	now := s.now()
	c, err := s.repo.Counts(ctx, now)
	if err != nil {
		s.cfg.Log.Error("Failed to compute worker stats", "error", err)
		return nil, apperrors.Internal("Failed to compute worker statistics", err)
	}

	return &model.WorkerStats{
		Total: c.Total,
		Verification: model.ProgressStats{
			Pending:   c.PendingVerification,
			Completed: c.Verified,
			Rate:      percent(c.Verified, c.Total),
		},
		Details: model.ProgressStats{
			Pending:   c.PendingDetails,
			Completed: c.DetailsLoaded,
			Rate:      percent(c.DetailsLoaded, c.Verified),
		},
		Status: model.StatusStats{
			Valid:   c.Total - c.Invalid,
			Invalid: c.Invalid,
			Private: c.Private,
		},
		Processing: model.ProcessingStats{
			Locked:            c.Locked,
			Stuck:             c.Stuck,
			RecentlyProcessed: c.RecentlyProcessed,
		},
		Errors: model.ErrorStats{
			Total:        c.WithErrors,
			Distribution: c.ErrorDistribution,
		},
		Timestamp: now,
	}, nil
}

func (s *workerService) Activity(ctx context.Context, hours int) (*model.ActivityReport, error) {
	if hours == 0 {
		hours = defaultActivityHours
	}
	if hours < 0 || hours > maxActivityHours {
		return nil, apperrors.InvalidInput(fmt.Sprintf("hours must be between 1 and %d", maxActivityHours))
	}

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	verified, err := s.repo.RecentlyVerified(ctx, since, activityLimit)
	if err != nil {
		s.cfg.Log.Error("Failed to get recently verified causas", "hours", hours, "error", err)
		return nil, apperrors.Internal("Failed to retrieve recent activity", err)
	}
	updated, err := s.repo.RecentlyUpdated(ctx, since, activityLimit)
	if err != nil {
		s.cfg.Log.Error("Failed to get recently updated causas", "hours", hours, "error", err)
		return nil, apperrors.Internal("Failed to retrieve recent activity", err)
	}

	return &model.ActivityReport{
		RecentlyVerified: verified,
		RecentlyUpdated:  updated,
		Period:           fmt.Sprintf("last %d hours", hours),
	}, nil
}

func (s *workerService) Eligibility(ctx context.Context) (*model.Eligibility, error) {
	e, err := s.repo.Eligibility(ctx, s.cfg.MaxWorkerErrors, s.now())
	if err != nil {
		s.cfg.Log.Error("Failed to compute queue eligibility", "error", err)
		return nil, apperrors.Internal("Failed to compute queue eligibility", err)
	}
	return e, nil
}

func (s *workerService) Errors(ctx context.Context, page, limit int) ([]*model.CausaSummary, int64, error) {
	page = config.NormalizePage(page)
	limit = s.cfg.NormalizePageLimit(limit)
	offset := int64(page-1) * int64(limit)

	causas, err := s.repo.FindWithErrors(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list causas with errors", "page", page, "limit", limit, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve causas with errors", err)
	}
	total, err := s.repo.CountWithErrors(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count causas with errors", "error", err)
		return nil, 0, apperrors.Internal("Failed to count causas with errors", err)
	}
	return causas, total, nil
}

func (s *workerService) Stuck(ctx context.Context) ([]*model.CausaSummary, error) {
	stuck, err := s.locker.Stuck(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list stuck leases", "error", err)
		return nil, apperrors.Internal("Failed to retrieve stuck causas", err)
	}
	return stuck, nil
}

func (s *workerService) ClearStuck(ctx context.Context) (int64, error) {
	cleared, err := s.locker.ClearStuck(ctx)
	if err != nil {
		return 0, apperrors.Internal("Failed to clear stuck causas", err)
	}
	return cleared, nil
}

func (s *workerService) ResetError(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Causa ID cannot be empty")
	}

	if err := s.repo.ResetError(ctx, id); err != nil {
		if errors.Is(err, workerserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Causa", id)
		}
		if errors.Is(err, workerserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid causa ID format")
		}
		s.cfg.Log.Error("Failed to reset causa errors", "causa_id", id, "error", err)
		return apperrors.Internal("Failed to reset causa errors", err)
	}

	s.cfg.Log.Info("Causa errors reset", "causa_id", id)
	return nil
}
