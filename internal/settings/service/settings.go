package service

import (
	"context"
	"errors"

	settingserrors "ejeapi/internal/settings/errors"
	"ejeapi/internal/settings/repository"
	"ejeapi/pkg/config"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/model"
	"ejeapi/pkg/validation"
)

type SettingsService interface {
	Get(ctx context.Context) (*model.WorkerSettings, error)
	Update(ctx context.Context, u *model.WorkerSettingsUpdate) (*model.WorkerSettings, error)
	Toggle(ctx context.Context) (*model.WorkerSettings, error)
}

type settingsService struct {
	repo      repository.SettingsRepository
	validator *validation.Validator
	cfg       *config.Config
}

func NewSettingsService(repo repository.SettingsRepository, validator *validation.Validator, cfg *config.Config) SettingsService {
	return &settingsService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

// Get returns the stored settings, creating the defaults on first use.
func (s *settingsService) Get(ctx context.Context) (*model.WorkerSettings, error) {
	settings, err := s.repo.Get(ctx, model.DefaultSettingsName)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, settingserrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to load worker settings", "error", err)
		return nil, apperrors.Internal("Failed to load worker settings", err)
	}

	settings, err = s.repo.Create(ctx, model.DefaultWorkerSettings(repository.Now()))
	if err != nil {
		s.cfg.Log.Error("Failed to create default worker settings", "error", err)
		return nil, apperrors.Internal("Failed to create worker settings", err)
	}
	s.cfg.Log.Info("Default worker settings created", "name", settings.Name)
	return settings, nil
}

func (s *settingsService) Update(ctx context.Context, u *model.WorkerSettingsUpdate) (*model.WorkerSettings, error) {
	if err := s.validator.Struct(u); err != nil {
		var verrs validation.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Settings validation failed", verrs.Details())
		}
		return nil, apperrors.InvalidInput("Settings validation failed")
	}

	set := u.SetFields()
	if len(set) == 0 {
		return nil, apperrors.BadRequest("No valid fields to update")
	}

	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateHours(current, u); err != nil {
		return nil, err
	}

	settings, err := s.repo.Update(ctx, model.DefaultSettingsName, set)
	if err != nil {
		s.cfg.Log.Error("Failed to update worker settings", "error", err)
		return nil, apperrors.Internal("Failed to update worker settings", err)
	}

	s.cfg.Log.Info("Worker settings updated", "fields", len(set))
	return settings, nil
}

// validateHours checks the schedule window after applying u to current.
func validateHours(current *model.WorkerSettings, u *model.WorkerSettingsUpdate) error {
	if u.Schedule == nil || (u.Schedule.StartHour == nil && u.Schedule.EndHour == nil) {
		return nil
	}
	start, end := current.Schedule.StartHour, current.Schedule.EndHour
	if u.Schedule.StartHour != nil {
		start = *u.Schedule.StartHour
	}
	if u.Schedule.EndHour != nil {
		end = *u.Schedule.EndHour
	}
	if start >= end {
		return apperrors.Validation("Settings validation failed", validation.ValidationErrors{{
			Field:   "schedule.startHour",
			Message: "must be before schedule.endHour",
		}}.Details())
	}
	return nil
}

func (s *settingsService) Toggle(ctx context.Context) (*model.WorkerSettings, error) {
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}

	settings, err := s.repo.Toggle(ctx, model.DefaultSettingsName)
	if err != nil {
		if errors.Is(err, settingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Worker settings")
		}
		s.cfg.Log.Error("Failed to toggle worker settings", "error", err)
		return nil, apperrors.Internal("Failed to toggle worker settings", err)
	}

	s.cfg.Log.Info("Workers toggled", "enabled", settings.Enabled)
	return settings, nil
}
