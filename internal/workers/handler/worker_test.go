package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"ejeapi/internal/lease"
	apperrors "ejeapi/pkg/errors"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"
)

type mockWorkerService struct {
	lockFunc       func(ctx context.Context, causaID, workerID string) (*lease.Lease, bool, error)
	unlockOK       bool
	verifyFunc     func(ctx context.Context, causaID, workerID string, token int64) (bool, error)
	errorsFunc     func(ctx context.Context, page, limit int) ([]*model.CausaSummary, int64, error)
	resetErrorFunc func(ctx context.Context, id string) error
	pendingLimit   int
	activityHours  int
}

func (m *mockWorkerService) PendingVerification(ctx context.Context, limit int) ([]*model.Causa, error) {
	m.pendingLimit = limit
	return []*model.Causa{{Cuij: "J-01-1/2024"}}, nil
}

func (m *mockWorkerService) PendingUpdate(ctx context.Context, limit int) ([]*model.Causa, error) {
	m.pendingLimit = limit
	return []*model.Causa{}, nil
}

func (m *mockWorkerService) Lock(ctx context.Context, causaID, workerID string) (*lease.Lease, bool, error) {
	return m.lockFunc(ctx, causaID, workerID)
}

func (m *mockWorkerService) Unlock(ctx context.Context, causaID string) bool { return m.unlockOK }

func (m *mockWorkerService) VerifyLock(ctx context.Context, causaID, workerID string, token int64) (bool, error) {
	return m.verifyFunc(ctx, causaID, workerID, token)
}

func (m *mockWorkerService) Stats(ctx context.Context) (*model.WorkerStats, error) {
	return &model.WorkerStats{Total: 10}, nil
}

func (m *mockWorkerService) Activity(ctx context.Context, hours int) (*model.ActivityReport, error) {
	m.activityHours = hours
	return &model.ActivityReport{Period: "last 6 hours"}, nil
}

func (m *mockWorkerService) Eligibility(ctx context.Context) (*model.Eligibility, error) {
	return &model.Eligibility{MaxErrors: 3}, nil
}

func (m *mockWorkerService) Errors(ctx context.Context, page, limit int) ([]*model.CausaSummary, int64, error) {
	return m.errorsFunc(ctx, page, limit)
}

func (m *mockWorkerService) Stuck(ctx context.Context) ([]*model.CausaSummary, error) {
	return []*model.CausaSummary{{Cuij: "x"}}, nil
}

func (m *mockWorkerService) ClearStuck(ctx context.Context) (int64, error) { return 2, nil }

func (m *mockWorkerService) ResetError(ctx context.Context, id string) error {
	return m.resetErrorFunc(ctx, id)
}

func newTestRouter(svc *mockWorkerService) *httprouter.Router {
	router := httprouter.New()
	h := NewWorkerHandler(svc, httputil.Paging{DefaultLimit: 20, MaxLimit: 100}, logger.Discard())
	h.RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLockHandler(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockWorkerService{
		lockFunc: func(ctx context.Context, causaID, workerID string) (*lease.Lease, bool, error) {
			switch workerID {
			case "":
				return nil, false, apperrors.InvalidInput("workerId is required")
			case "busy":
				return nil, false, nil
			}
			return &lease.Lease{CausaID: causaID, WorkerID: workerID, Token: 3, AcquiredAt: now}, true, nil
		},
	}
	router := newTestRouter(svc)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantSuccess bool
	}{
		{"acquired", `{"workerId":"w1"}`, http.StatusOK, true},
		{"held", `{"workerId":"busy"}`, http.StatusOK, false},
		{"missing worker", `{}`, http.StatusBadRequest, false},
		{"empty body", ``, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, "/api/causas-eje-service/lock/abc", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}

			var resp struct {
				Data LockResponse `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Data.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v", resp.Data.Success, tt.wantSuccess)
			}
			if tt.wantSuccess {
				if resp.Data.Token != 3 || resp.Data.ExpiresAt == nil || !resp.Data.ExpiresAt.Equal(now.Add(lease.Duration)) {
					t.Errorf("unexpected lease payload: %+v", resp.Data)
				}
			}
		})
	}
}

func TestUnlockHandler(t *testing.T) {
	for _, ok := range []bool{true, false} {
		router := newTestRouter(&mockWorkerService{unlockOK: ok})
		w := serve(router, http.MethodPost, "/api/causas-eje-service/unlock/abc", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp struct {
			Data LockResponse `json:"data"`
		}
		_ = json.NewDecoder(w.Body).Decode(&resp)
		if resp.Data.Success != ok {
			t.Errorf("success = %v, want %v", resp.Data.Success, ok)
		}
	}
}

func TestVerifyLockHandler(t *testing.T) {
	var gotToken int64
	svc := &mockWorkerService{
		verifyFunc: func(ctx context.Context, causaID, workerID string, token int64) (bool, error) {
			gotToken = token
			return workerID == "w1", nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodPost, "/api/causas-eje-service/lock/abc/verify", `{"workerId":"w1","token":9}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Data VerifyLockResponse `json:"data"`
	}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Data.Valid || gotToken != 9 || resp.Data.CausaID != "abc" {
		t.Errorf("resp = %+v, token = %d", resp.Data, gotToken)
	}
}

func TestPendingHandlers_Limit(t *testing.T) {
	svc := &mockWorkerService{}
	router := newTestRouter(svc)

	if w := serve(router, http.MethodGet, "/api/causas-eje-service/pending-verification?limit=5", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.pendingLimit != 5 {
		t.Errorf("limit = %d", svc.pendingLimit)
	}
	if w := serve(router, http.MethodGet, "/api/causas-eje-service/pending-update?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d", w.Code)
	}
}

func TestErrorsHandler_Pagination(t *testing.T) {
	svc := &mockWorkerService{
		errorsFunc: func(ctx context.Context, page, limit int) ([]*model.CausaSummary, int64, error) {
			return []*model.CausaSummary{{Cuij: "a"}}, 45, nil
		},
	}
	router := newTestRouter(svc)

	w := serve(router, http.MethodGet, "/api/worker-stats/errors?page=2&limit=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp httputil.PaginatedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := resp.Pagination
	if p.Total != 45 || p.TotalPages != 3 || !p.HasNextPage || !p.HasPrevPage {
		t.Errorf("pagination = %+v", p)
	}
}

func TestResetErrorHandler(t *testing.T) {
	svc := &mockWorkerService{
		resetErrorFunc: func(ctx context.Context, id string) error {
			if id == "missing" {
				return apperrors.NotFoundWithID("Causa", id)
			}
			return nil
		},
	}
	router := newTestRouter(svc)

	if w := serve(router, http.MethodPost, "/api/worker-stats/reset-error/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := serve(router, http.MethodPost, "/api/worker-stats/reset-error/abc", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestStatsRoutes(t *testing.T) {
	svc := &mockWorkerService{}
	router := newTestRouter(svc)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/worker-stats"},
		{http.MethodGet, "/api/worker-stats/activity?hours=6"},
		{http.MethodGet, "/api/worker-stats/eligibility"},
		{http.MethodGet, "/api/worker-stats/stuck"},
		{http.MethodPost, "/api/worker-stats/clear-stuck"},
	}
	for _, p := range paths {
		t.Run(p.path, func(t *testing.T) {
			if w := serve(router, p.method, p.path, ""); w.Code != http.StatusOK {
				t.Errorf("status = %d: %s", w.Code, w.Body.String())
			}
		})
	}
	if svc.activityHours != 6 {
		t.Errorf("hours = %d", svc.activityHours)
	}
}
