package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	managererrors "ejeapi/internal/manager/errors"
	"ejeapi/internal/manager/repository"
	"ejeapi/pkg/config"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"
	"ejeapi/pkg/validation"
)

const (
	DefaultHistoryHours  = 24
	MaxHistoryHours      = 24 * 30
	DefaultDailyStatDays = 30
	MaxDailyStatDays     = 365
	overviewAlerts       = 10
	overviewDailyStats   = 7
	alertListLimit       = 50
)

type ManagerService interface {
	Overview(ctx context.Context) (*model.ManagerOverview, error)
	Full(ctx context.Context) (*model.ManagerConfig, error)
	Update(ctx context.Context, u *model.ManagerSettingsUpdate) (*model.ManagerSettings, error)
	UpdateGlobal(ctx context.Context, u *model.GlobalSettingsUpdate) (*model.GlobalSettings, error)
	ToggleRunning(ctx context.Context) (*model.ManagerState, error)
	TogglePaused(ctx context.Context) (*model.ManagerState, error)
	History(ctx context.Context, hours int) (*model.ManagerHistory, error)
	Alerts(ctx context.Context, includeAcknowledged bool) (*model.AlertList, error)
	AcknowledgeAlert(ctx context.Context, index int, by string) error
	DailyStats(ctx context.Context, days int) ([]model.ManagerDailyStats, error)

	Workers(ctx context.Context) (*model.WorkersOverview, error)
	Worker(ctx context.Context, workerType string) (*model.WorkerDetail, error)
	UpdateWorker(ctx context.Context, workerType string, u *model.WorkerConfigUpdate) (*model.WorkerView, error)
	ToggleWorker(ctx context.Context, workerType string) (*model.WorkerView, error)

	RunStats(ctx context.Context, workerType string) ([]*model.WorkerRunStats, error)
	TodaySummary(ctx context.Context, workerType string) (*model.TodaySummary, error)
	RunHistory(ctx context.Context, workerType, workerID string, limit int) (*model.RunHistory, error)
}

type managerService struct {
	repo      repository.ManagerRepository
	runs      repository.RunStatsRepository
	validator *validation.Validator
	cfg       *config.Config
	now       func() time.Time
}

func NewManagerService(repo repository.ManagerRepository, runs repository.RunStatsRepository, validator *validation.Validator, cfg *config.Config) ManagerService {
	return &managerService{
		repo:      repo,
		runs:      runs,
		validator: validator,
		cfg:       cfg,
		now:       repository.Now,
	}
}

func invalidWorkerType() error {
	return apperrors.BadRequest("Invalid worker type. Must be verification, update, or stuck")
}

func parseWorkerType(s string) (model.WorkerType, error) {
	t, ok := model.ParseWorkerType(s)
	if !ok {
		return "", invalidWorkerType()
	}
	return t, nil
}

// load returns the manager document, creating the defaults on first use.
func (s *managerService) load(ctx context.Context) (*model.ManagerConfig, error) {
	c, err := s.repo.Get(ctx, model.ManagerConfigName)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, managererrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to load manager config", "error", err)
		return nil, apperrors.Internal("Failed to load manager configuration", err)
	}

	c, err = s.repo.Create(ctx, model.DefaultManagerConfig(s.now()))
	if err != nil {
		s.cfg.Log.Error("Failed to create default manager config", "error", err)
		return nil, apperrors.Internal("Failed to create manager configuration", err)
	}
	s.cfg.Log.Info("Default manager config created", "name", c.Name)
	return c, nil
}

func (s *managerService) Full(ctx context.Context) (*model.ManagerConfig, error) {
	return s.load(ctx)
}

func (s *managerService) Overview(ctx context.Context) (*model.ManagerOverview, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &model.ManagerOverview{
		Config:       c.Config,
		CurrentState: c.CurrentState,
		Alerts:       tail(unacknowledged(c.Alerts), overviewAlerts),
		DailyStats:   tail(c.DailyStats, overviewDailyStats),
	}, nil
}

func (s *managerService) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Manager validation failed", verrs.Details())
		}
		return apperrors.InvalidInput("Manager validation failed")
	}
	return nil
}

// update validates, checks cross-field ranges against the stored document
// and applies set.
func (s *managerService) update(ctx context.Context, v any, set map[string]any, check func(*model.ManagerConfig) error) (*model.ManagerConfig, error) {
	if err := s.validate(v); err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, apperrors.BadRequest("No valid fields to update")
	}

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := check(current); err != nil {
		return nil, err
	}

	c, err := s.repo.Update(ctx, model.ManagerConfigName, set)
	if err != nil {
		s.cfg.Log.Error("Failed to update manager config", "error", err)
		return nil, apperrors.Internal("Failed to update manager configuration", err)
	}
	return c, nil
}

func (s *managerService) Update(ctx context.Context, u *model.ManagerSettingsUpdate) (*model.ManagerSettings, error) {
	c, err := s.update(ctx, u, u.SetFields(), func(current *model.ManagerConfig) error {
		cur := current.Config
		if err := checkRange("workStartHour", "must be before workEndHour",
			cur.WorkStartHour, cur.WorkEndHour, u.WorkStartHour, u.WorkEndHour, false); err != nil {
			return err
		}
		return checkRange("minWorkers", "must not exceed maxWorkers",
			cur.MinWorkers, cur.MaxWorkers, u.MinWorkers, u.MaxWorkers, true)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Manager configuration updated", "fields", len(u.SetFields()))
	return &c.Config, nil
}

func (s *managerService) UpdateGlobal(ctx context.Context, u *model.GlobalSettingsUpdate) (*model.GlobalSettings, error) {
	c, err := s.update(ctx, u, u.SetFields(), func(current *model.ManagerConfig) error {
		return checkRange("workStartHour", "must be before workEndHour",
			current.Config.WorkStartHour, current.Config.WorkEndHour, u.WorkStartHour, u.WorkEndHour, false)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Global manager settings updated", "fields", len(u.SetFields()))
	global := c.Config.Global()
	return &global, nil
}

// checkRange applies the updated bounds over the stored ones and rejects
// lo >= hi, or lo > hi when allowEqual is set.
func checkRange(field, message string, lo, hi int, newLo, newHi *int, allowEqual bool) error {
	if newLo == nil && newHi == nil {
		return nil
	}
	if newLo != nil {
		lo = *newLo
	}
	if newHi != nil {
		hi = *newHi
	}
	if lo < hi || (allowEqual && lo == hi) {
		return nil
	}
	return apperrors.Validation("Manager validation failed", validation.ValidationErrors{{
		Field:   field,
		Message: message,
	}}.Details())
}

func (s *managerService) toggle(ctx context.Context, path, action string) (*model.ManagerConfig, error) {
	if _, err := s.load(ctx); err != nil {
		return nil, err
	}

	event := model.ManagerEvent{Timestamp: s.now(), Action: action}
	c, err := s.repo.Toggle(ctx, model.ManagerConfigName, path, event)
	if err != nil {
		if errors.Is(err, managererrors.ErrNotFound) {
			return nil, apperrors.NotFound("Manager configuration")
		}
		s.cfg.Log.Error("Failed to toggle manager field", "path", path, "error", err)
		return nil, apperrors.Internal("Failed to toggle manager state", err)
	}
	return c, nil
}

func (s *managerService) ToggleRunning(ctx context.Context) (*model.ManagerState, error) {
	c, err := s.toggle(ctx, "currentState.isRunning", "toggle-running")
	if err != nil {
		return nil, err
	}
	s.cfg.Log.Info("Manager state toggled", "is_running", c.CurrentState.IsRunning)
	return &c.CurrentState, nil
}

func (s *managerService) TogglePaused(ctx context.Context) (*model.ManagerState, error) {
	c, err := s.toggle(ctx, "currentState.isPaused", "toggle-paused")
	if err != nil {
		return nil, err
	}
	s.cfg.Log.Info("Manager pause state changed", "is_paused", c.CurrentState.IsPaused)
	return &c.CurrentState, nil
}

func (s *managerService) History(ctx context.Context, hours int) (*model.ManagerHistory, error) {
	if hours <= 0 {
		hours = DefaultHistoryHours
	}
	hours = min(hours, MaxHistoryHours)

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	entries := make([]model.ManagerEvent, 0)
	for _, e := range c.History {
		if !e.Timestamp.Before(since) {
			entries = append(entries, e)
		}
	}
	return &model.ManagerHistory{
		Entries: entries,
		Period:  fmt.Sprintf("last %d hours", hours),
		Count:   len(entries),
	}, nil
}

func (s *managerService) Alerts(ctx context.Context, includeAcknowledged bool) (*model.AlertList, error) {
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	alerts := c.Alerts
	if !includeAcknowledged {
		alerts = unacknowledged(alerts)
	}
	return &model.AlertList{
		Alerts: tail(alerts, alertListLimit),
		Total:  len(alerts),
	}, nil
}

func (s *managerService) AcknowledgeAlert(ctx context.Context, index int, by string) error {
	if index < 0 {
		return apperrors.InvalidInput("alert index must not be negative")
	}
	if by == "" {
		by = "admin"
	}

	err := s.repo.AcknowledgeAlert(ctx, model.ManagerConfigName, index, by, s.now())
	if err != nil {
		if errors.Is(err, managererrors.ErrAlertNotFound) {
			return apperrors.NotFound("Alert")
		}
		s.cfg.Log.Error("Failed to acknowledge alert", "index", index, "error", err)
		return apperrors.Internal("Failed to acknowledge alert", err)
	}

	s.cfg.Log.Info("Alert acknowledged", "index", index, "acknowledged_by", by)
	return nil
}

func (s *managerService) DailyStats(ctx context.Context, days int) ([]model.ManagerDailyStats, error) {
	if days <= 0 {
		days = DefaultDailyStatDays
	}
	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return tail(c.DailyStats, min(days, MaxDailyStatDays)), nil
}

func unacknowledged(alerts []model.ManagerAlert) []model.ManagerAlert {
	out := make([]model.ManagerAlert, 0, len(alerts))
	for _, a := range alerts {
		if !a.Acknowledged {
			out = append(out, a)
		}
	}
	return out
}

// tail returns the last n elements, never nil.
func tail[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[len(items)-n:]
	}
	if items == nil {
		return []T{}
	}
	return items
}
