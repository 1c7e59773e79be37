package service

import (
	"context"
	"errors"
	"time"

	managererrors "ejeapi/internal/manager/errors"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"
)

const (
	DefaultRunHistoryLimit = 20
	MaxRunHistoryLimit     = 200
)

func (s *managerService) Workers(ctx context.Context) (*model.WorkersOverview, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	workers := make([]model.WorkerView, 0, len(model.WorkerTypes))
	for _, t := range model.WorkerTypes {
		workers = append(workers, c.Worker(t))
	}
	return &model.WorkersOverview{
		Workers:        workers,
		GlobalSettings: c.Config.Global(),
		ManagerState:   c.CurrentState,
	}, nil
}

func (s *managerService) Worker(ctx context.Context, workerType string) (*model.WorkerDetail, error) {
	t, err := parseWorkerType(workerType)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &model.WorkerDetail{
		WorkerView:     c.Worker(t),
		GlobalSettings: c.Config.Global(),
	}, nil
}

func (s *managerService) UpdateWorker(ctx context.Context, workerType string, u *model.WorkerConfigUpdate) (*model.WorkerView, error) {
	t, err := parseWorkerType(workerType)
	if err != nil {
		return nil, err
	}

	c, err := s.update(ctx, u, u.SetFields(t), func(current *model.ManagerConfig) error {
		cur := current.Config.Workers[string(t)]
		if err := checkRange("minWorkers", "must not exceed maxWorkers",
			cur.MinWorkers, cur.MaxWorkers, u.MinWorkers, u.MaxWorkers, true); err != nil {
			return err
		}
		if u.Schedule == nil {
			return nil
		}
		// Unset override hours inherit the global window.
		eff := current.Config.EffectiveSchedule(t)
		return checkRange("schedule.workStartHour", "must be before schedule.workEndHour",
			eff.WorkStartHour, eff.WorkEndHour, u.Schedule.WorkStartHour, u.Schedule.WorkEndHour, false)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Worker configuration updated", "worker_type", t, "fields", len(u.SetFields(t)))
	view := c.Worker(t)
	return &view, nil
}

func (s *managerService) ToggleWorker(ctx context.Context, workerType string) (*model.WorkerView, error) {
	t, err := parseWorkerType(workerType)
	if err != nil {
		return nil, err
	}

	c, err := s.toggle(ctx, "config.workers."+string(t)+".enabled", "toggle-worker-"+string(t))
	if err != nil {
		return nil, err
	}

	view := c.Worker(t)
	s.cfg.Log.Info("Worker enabled state toggled", "worker_type", t, "enabled", view.Config.Enabled)
	return &view, nil
}

// optionalWorkerType treats an empty filter as all worker types.
func optionalWorkerType(workerType string) (model.WorkerType, error) {
	if workerType == "" {
		return "", nil
	}
	return parseWorkerType(workerType)
}

func (s *managerService) RunStats(ctx context.Context, workerType string) ([]*model.WorkerRunStats, error) {
	t, err := optionalWorkerType(workerType)
	if err != nil {
		return nil, err
	}

	stats, err := s.runs.Find(ctx, t)
	if err != nil {
		s.cfg.Log.Error("Failed to load worker run stats", "worker_type", t, "error", err)
		return nil, apperrors.Internal("Failed to load worker stats", err)
	}
	return stats, nil
}

// TodaySummary totals the runs started since midnight in the manager's
// timezone.
func (s *managerService) TodaySummary(ctx context.Context, workerType string) (*model.TodaySummary, error) {
	stats, err := s.RunStats(ctx, workerType)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	summary := model.SummarizeRuns(stats, startOfDay(s.now(), c.Config.Timezone))
	summary.WorkerType = model.WorkerType(workerType)
	return &summary, nil
}

func (s *managerService) RunHistory(ctx context.Context, workerType, workerID string, limit int) (*model.RunHistory, error) {
	t, err := parseWorkerType(workerType)
	if err != nil {
		return nil, err
	}
	if workerID == "" {
		return nil, apperrors.InvalidInput("workerId is required")
	}
	if limit <= 0 {
		limit = DefaultRunHistoryLimit
	}

	stats, err := s.runs.FindOne(ctx, t, workerID)
	if err != nil {
		if errors.Is(err, managererrors.ErrRunStatsNotFound) {
			return &model.RunHistory{RunHistory: []model.WorkerRun{}}, nil
		}
		s.cfg.Log.Error("Failed to load worker run history", "worker_type", t, "worker_id", workerID, "error", err)
		return nil, apperrors.Internal("Failed to load run history", err)
	}

	history := stats.RecentRuns(min(limit, MaxRunHistoryLimit))
	return &history, nil
}

func startOfDay(now time.Time, timezone string) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
