package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	settingserrors "ejeapi/internal/settings/errors"
	"ejeapi/pkg/config"
	apperrors "ejeapi/pkg/errors"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"
	"ejeapi/pkg/validation"

	"go.mongodb.org/mongo-driver/bson"
)

type memSettingsRepository struct {
	stored  *model.WorkerSettings
	getErr  error
	creates int
	lastSet bson.M
}

func (m *memSettingsRepository) Get(ctx context.Context, name string) (*model.WorkerSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.stored == nil {
		return nil, settingserrors.ErrNotFound
	}
	return m.stored, nil
}

func (m *memSettingsRepository) Create(ctx context.Context, s *model.WorkerSettings) (*model.WorkerSettings, error) {
	m.creates++
	if m.stored == nil {
		m.stored = s
	}
	return m.stored, nil
}

func (m *memSettingsRepository) Update(ctx context.Context, name string, set bson.M) (*model.WorkerSettings, error) {
	m.lastSet = set
	if v, ok := set["workerCount"].(int); ok {
		m.stored.WorkerCount = v
	}
	if v, ok := set["schedule.endHour"].(int); ok {
		m.stored.Schedule.EndHour = v
	}
	return m.stored, nil
}

func (m *memSettingsRepository) Toggle(ctx context.Context, name string) (*model.WorkerSettings, error) {
	if m.stored == nil {
		return nil, settingserrors.ErrNotFound
	}
	m.stored.Enabled = !m.stored.Enabled
	return m.stored, nil
}

func newTestService(repo *memSettingsRepository) SettingsService {
	return NewSettingsService(repo, validation.New(), &config.Config{Log: logger.Discard()})
}

func statusOf(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return 0
	}
	return appErr.StatusCode()
}

func ptr[T any](v T) *T { return &v }

func TestGet_CreatesDefaultsOnce(t *testing.T) {
	repo := &memSettingsRepository{}
	svc := newTestService(repo)

	for range 2 {
		s, err := svc.Get(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Name != model.DefaultSettingsName || s.WorkerCount != 3 || !s.Enabled {
			t.Errorf("unexpected defaults: %+v", s)
		}
	}
	if repo.creates != 1 {
		t.Errorf("creates = %d, want 1", repo.creates)
	}
}

func TestGet_RepositoryError(t *testing.T) {
	svc := newTestService(&memSettingsRepository{getErr: errors.New("no route to host")})
	if _, err := svc.Get(context.Background()); statusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name       string
		update     model.WorkerSettingsUpdate
		wantStatus int
	}{
		{
			name:   "worker count",
			update: model.WorkerSettingsUpdate{WorkerCount: ptr(5)},
		},
		{
			name:   "end hour after stored start",
			update: model.WorkerSettingsUpdate{Schedule: &model.WorkScheduleUpdate{EndHour: ptr(18)}},
		},
		{
			name:       "nothing to update",
			update:     model.WorkerSettingsUpdate{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty nested object",
			update:     model.WorkerSettingsUpdate{RateLimit: &model.WorkerRateLimitUpdate{}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "worker count out of range",
			update:     model.WorkerSettingsUpdate{WorkerCount: ptr(0)},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "bad timezone",
			update:     model.WorkerSettingsUpdate{Schedule: &model.WorkScheduleUpdate{Timezone: ptr("Mars/Olympus")}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "duplicate work days",
			update:     model.WorkerSettingsUpdate{Schedule: &model.WorkScheduleUpdate{WorkDays: []int{1, 1}}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "end hour before stored start",
			update:     model.WorkerSettingsUpdate{Schedule: &model.WorkScheduleUpdate{EndHour: ptr(6)}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "start equals end",
			update: model.WorkerSettingsUpdate{Schedule: &model.WorkScheduleUpdate{
				StartHour: ptr(10),
				EndHour:   ptr(10),
			}},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memSettingsRepository{}
			svc := newTestService(repo)

			_, err := svc.Update(context.Background(), &tt.update)
			if got := statusOf(err); got != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", got, tt.wantStatus, err)
			}
			if tt.wantStatus != 0 && repo.lastSet != nil {
				t.Error("rejected update must not reach the repository")
			}
		})
	}
}

func TestUpdate_DottedPaths(t *testing.T) {
	repo := &memSettingsRepository{}
	svc := newTestService(repo)

	s, err := svc.Update(context.Background(), &model.WorkerSettingsUpdate{
		Schedule: &model.WorkScheduleUpdate{EndHour: ptr(22)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.lastSet["schedule.endHour"]; !ok || len(repo.lastSet) != 1 {
		t.Errorf("unexpected $set: %v", repo.lastSet)
	}
	if s.Schedule.EndHour != 22 || s.Schedule.StartHour != 8 {
		t.Errorf("sibling schedule fields must be preserved: %+v", s.Schedule)
	}
}

func TestToggle(t *testing.T) {
	repo := &memSettingsRepository{}
	svc := newTestService(repo)

	s, err := svc.Toggle(context.Background())
	if err != nil || s.Enabled {
		t.Fatalf("first toggle = %+v, %v; want disabled", s, err)
	}
	s, err = svc.Toggle(context.Background())
	if err != nil || !s.Enabled {
		t.Fatalf("second toggle = %+v, %v; want enabled", s, err)
	}
}
