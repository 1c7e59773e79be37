package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"ejeapi/internal/causas/service"
	apperrors "ejeapi/pkg/errors"
	httputil "ejeapi/pkg/http"
	"ejeapi/pkg/logger"
	"ejeapi/pkg/model"
)

// mockCausaService records which operation served a request and with what
// arguments.
type mockCausaService struct {
	called string
	args   []any

	search         model.CausaSearch
	createdFlag    bool
	err            error
	associateFlag  bool
	movimientosLen int
}

func (m *mockCausaService) record(op string, args ...any) {
	m.called = op
	m.args = args
}

func (m *mockCausaService) Stats(ctx context.Context) (*model.CausaStats, error) {
	m.record("Stats")
	return &model.CausaStats{Total: 3}, m.err
}

func (m *mockCausaService) Search(ctx context.Context, q model.CausaSearch, page, limit int) ([]*model.Causa, int64, error) {
	m.record("Search", page, limit)
	m.search = q
	return []*model.Causa{{Cuij: "A"}}, 41, m.err
}

func (m *mockCausaService) ByFolder(ctx context.Context, folderID string, page, limit int) ([]*model.Causa, int64, error) {
	m.record("ByFolder", folderID, page, limit)
	return []*model.Causa{}, 0, m.err
}

func (m *mockCausaService) ByUser(ctx context.Context, userID string, page, limit int) ([]*model.Causa, int64, error) {
	m.record("ByUser", userID, page, limit)
	return []*model.Causa{}, 0, m.err
}

func (m *mockCausaService) GetByID(ctx context.Context, id string) (*model.Causa, error) {
	m.record("GetByID", id)
	return &model.Causa{Cuij: "A"}, m.err
}

func (m *mockCausaService) GetByCuij(ctx context.Context, cuij string) (*model.Causa, error) {
	m.record("GetByCuij", cuij)
	return &model.Causa{Cuij: cuij}, m.err
}

func (m *mockCausaService) GetByNumeroAnio(ctx context.Context, numero, anio int) (*model.Causa, error) {
	m.record("GetByNumeroAnio", numero, anio)
	return &model.Causa{Numero: numero, Anio: anio}, m.err
}

func (m *mockCausaService) Movimientos(ctx context.Context, id string, page, limit int) (*service.MovimientosPage, error) {
	m.record("Movimientos", id, page, limit)
	if m.err != nil {
		return nil, m.err
	}
	return &service.MovimientosPage{
		Cuij:        "A",
		Movimientos: make([]model.Movimiento, m.movimientosLen),
		Total:       int64(m.movimientosLen),
		Page:        page,
		Limit:       limit,
	}, nil
}

func (m *mockCausaService) Intervinientes(ctx context.Context, id string) (*model.Causa, error) {
	m.record("Intervinientes", id)
	return &model.Causa{Cuij: "A"}, m.err
}

func (m *mockCausaService) Relacionadas(ctx context.Context, id string) (*model.Causa, error) {
	m.record("Relacionadas", id)
	return &model.Causa{Cuij: "A"}, m.err
}

func (m *mockCausaService) CreateOrUpdate(ctx context.Context, in *model.CausaInput) (*model.Causa, bool, error) {
	m.record("CreateOrUpdate", in)
	if m.err != nil {
		return nil, false, m.err
	}
	return &model.Causa{Cuij: *in.Cuij}, m.createdFlag, nil
}

func (m *mockCausaService) Update(ctx context.Context, id string, in *model.CausaInput) (*model.Causa, error) {
	m.record("Update", id)
	return &model.Causa{Cuij: "A"}, m.err
}

func (m *mockCausaService) Delete(ctx context.Context, id string) (*model.Causa, error) {
	m.record("Delete", id)
	if m.err != nil {
		return nil, m.err
	}
	return &model.Causa{Cuij: "A"}, nil
}

func (m *mockCausaService) AssociateFolder(ctx context.Context, req *model.FolderAssociation) (*model.FolderAssociationResult, error) {
	m.record("AssociateFolder", req.FolderID)
	if m.err != nil {
		return nil, m.err
	}
	return &model.FolderAssociationResult{Created: m.associateFlag, CausaID: "c1", Cuij: "A"}, nil
}

func (m *mockCausaService) DissociateFolder(ctx context.Context, req *model.FolderDissociation) error {
	m.record("DissociateFolder", req.CausaID, req.FolderID)
	return m.err
}

func (m *mockCausaService) FindByFolder(ctx context.Context, folderID string) (*model.Causa, error) {
	m.record("FindByFolder", folderID)
	return &model.Causa{Cuij: "A"}, m.err
}

func (m *mockCausaService) UpdatePreference(ctx context.Context, req *model.PreferenceUpdate) (*model.PreferenceResult, error) {
	m.record("UpdatePreference", req.CausaID)
	if m.err != nil {
		return nil, m.err
	}
	return &model.PreferenceResult{CausaID: req.CausaID, UpdateEnabled: *req.Enabled}, nil
}

func (m *mockCausaService) LinkedCausas(ctx context.Context, id string) ([]*model.Causa, error) {
	m.record("LinkedCausas", id)
	return []*model.Causa{}, m.err
}

func (m *mockCausaService) ResolvePivot(ctx context.Context, pivotID string, req *model.ResolvePivotRequest) (*model.ResolvePivotResult, error) {
	m.record("ResolvePivot", pivotID, req.TargetCausaID)
	if m.err != nil {
		return nil, m.err
	}
	return &model.ResolvePivotResult{PivotID: pivotID, TargetCausaID: req.TargetCausaID}, nil
}

func newTestRouter(svc *mockCausaService) *httprouter.Router {
	router := httprouter.New()
	h := NewCausaHandler(svc, httputil.Paging{DefaultLimit: 20, MaxLimit: 100}, logger.Discard())
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

func TestDispatch(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantOp   string
		wantArgs []any
	}{
		{"stats", "/api/causas-eje/stats", "Stats", nil},
		{"buscar", "/api/causas-eje/buscar?page=2&limit=5", "Search", []any{2, 5}},
		{"search alias", "/api/causas-eje/search", "Search", []any{1, 20}},
		{"root search", "/api/causas-eje", "Search", []any{1, 20}},
		{"by folder", "/api/causas-eje/folder/f1", "ByFolder", []any{"f1", 1, 20}},
		{"by user", "/api/causas-eje/user/u1?limit=500", "ByUser", []any{"u1", 1, 100}},
		{"by cuij", "/api/causas-eje/cuij/J-01-1", "GetByCuij", []any{"J-01-1"}},
		{"by cuij with slash", "/api/causas-eje/cuij/J-01-00015050-5/2021-0", "GetByCuij", []any{"J-01-00015050-5/2021-0"}},
		{"by id", "/api/causas-eje/id/abc", "GetByID", []any{"abc"}},
		{"movimientos", "/api/causas-eje/abc/movimientos", "Movimientos", []any{"abc", 1, 20}},
		{"intervinientes", "/api/causas-eje/abc/intervinientes", "Intervinientes", []any{"abc"}},
		{"relacionadas", "/api/causas-eje/abc/relacionadas", "Relacionadas", []any{"abc"}},
		{"linked causas", "/api/causas-eje/abc/linked-causas", "LinkedCausas", []any{"abc"}},
		{"number and year", "/api/causas-eje/15050/2021", "GetByNumeroAnio", []any{15050, 2021}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCausaService{}
			w := serve(newTestRouter(svc), http.MethodGet, tt.path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if svc.called != tt.wantOp {
				t.Fatalf("called %q, want %q", svc.called, tt.wantOp)
			}
			if len(tt.wantArgs) != len(svc.args) {
				t.Fatalf("args = %v, want %v", svc.args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if svc.args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %v, want %v", i, svc.args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestDispatch_NotFound(t *testing.T) {
	paths := []string{
		"/api/causas-eje/unknown",
		"/api/causas-eje/a/b/c",
	}
	for _, path := range paths {
		svc := &mockCausaService{}
		w := serve(newTestRouter(svc), http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, w.Code)
		}
		if svc.called != "" {
			t.Errorf("%s: service must not be called, got %q", path, svc.called)
		}
	}

	w := serve(newTestRouter(&mockCausaService{}), http.MethodGet, "/api/causas-eje/abc/2021", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-numeric number: status = %d, want 400", w.Code)
	}
}

func TestSearch_ParsesFilters(t *testing.T) {
	svc := &mockCausaService{}
	path := "/api/causas-eje/buscar?caratula=perez&numero=12&verified=true&isValid=false&fechaInicioFrom=2024-01-01&sortBy=anio&sortOrder=asc"
	w := serve(newTestRouter(svc), http.MethodGet, path, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	q := svc.search
	if q.Caratula != "perez" || q.Numero == nil || *q.Numero != 12 {
		t.Errorf("text filters not parsed: %+v", q)
	}
	if q.Verified == nil || !*q.Verified || q.IsValid == nil || *q.IsValid {
		t.Errorf("bool filters not parsed: %+v", q)
	}
	if q.FechaInicioFrom == nil || q.FechaInicioFrom.Year() != 2024 || q.FechaInicioTo != nil {
		t.Errorf("date filters not parsed: %+v", q)
	}
	if q.SortBy != "anio" || q.SortOrder != "asc" {
		t.Errorf("sort not parsed: %+v", q)
	}

	var resp httputil.PaginatedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pagination.Total != 41 || resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNextPage {
		t.Errorf("unexpected pagination: %+v", resp.Pagination)
	}

	for _, bad := range []string{"verified=maybe", "numero=x", "fechaInicioTo=yesterday", "page=zero"} {
		w := serve(newTestRouter(&mockCausaService{}), http.MethodGet, "/api/causas-eje/buscar?"+bad, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestCreateOrUpdateHandler(t *testing.T) {
	tests := []struct {
		name       string
		created    bool
		body       string
		wantStatus int
	}{
		{"created", true, `{"cuij":"A"}`, http.StatusCreated},
		{"updated", false, `{"cuij":"A"}`, http.StatusOK},
		{"bad json", false, `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCausaService{createdFlag: tt.created}
			w := serve(newTestRouter(svc), http.MethodPost, "/api/causas-eje", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code >= 300 {
				return
			}
			var resp struct {
				Data CreateOrUpdateResponse `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Data.Created != tt.created || resp.Data.Causa.Cuij != "A" {
				t.Errorf("unexpected body: %+v", resp.Data)
			}
		})
	}
}

func TestWriteRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		err        error
		wantOp     string
		wantStatus int
	}{
		{"patch", http.MethodPatch, "/api/causas-eje/abc", `{"estado":"x"}`, nil, "Update", http.StatusOK},
		{"patch missing", http.MethodPatch, "/api/causas-eje/abc", `{"estado":"x"}`, apperrors.NotFound("Causa"), "Update", http.StatusNotFound},
		{"delete", http.MethodDelete, "/api/causas-eje/abc", "", nil, "Delete", http.StatusOK},
		{"resolve", http.MethodPost, "/api/causas-eje/abc/resolve", `{"targetCausaId":"t1"}`, nil, "ResolvePivot", http.StatusOK},
		{"resolve conflict", http.MethodPost, "/api/causas-eje/abc/resolve", `{"targetCausaId":"t1"}`, apperrors.Conflict("resolved"), "ResolvePivot", http.StatusConflict},
		{"dissociate", http.MethodDelete, "/api/causas-eje-service/dissociate-folder", `{"causaId":"c","folderId":"f"}`, nil, "DissociateFolder", http.StatusOK},
		{"by folder", http.MethodGet, "/api/causas-eje-service/by-folder/f1", "", nil, "FindByFolder", http.StatusOK},
		{"preference", http.MethodPatch, "/api/causas-eje-service/update-preference", `{"causaId":"c","userId":"u","enabled":true}`, nil, "UpdatePreference", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCausaService{err: tt.err}
			w := serve(newTestRouter(svc), tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if svc.called != tt.wantOp {
				t.Errorf("called %q, want %q", svc.called, tt.wantOp)
			}
		})
	}
}

func TestAssociateFolderHandler(t *testing.T) {
	for _, created := range []bool{true, false} {
		svc := &mockCausaService{associateFlag: created}
		w := serve(newTestRouter(svc), http.MethodPost, "/api/causas-eje-service/associate-folder", `{"cuij":"A","folderId":"f"}`)

		want := http.StatusOK
		if created {
			want = http.StatusCreated
		}
		if w.Code != want {
			t.Errorf("created=%v: status = %d, want %d", created, w.Code, want)
		}

		var resp struct {
			Data model.FolderAssociationResult `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Data.Created != created || resp.Data.CausaID != "c1" {
			t.Errorf("unexpected body: %+v", resp.Data)
		}
	}
}

func TestMovimientosHandler_Pagination(t *testing.T) {
	svc := &mockCausaService{movimientosLen: 7}
	w := serve(newTestRouter(svc), http.MethodGet, "/api/causas-eje/abc/movimientos?page=2&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Data struct {
			Cuij string `json:"cuij"`
		} `json:"data"`
		Pagination httputil.PageMeta `json:"pagination"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Cuij != "A" || resp.Pagination.Page != 2 || resp.Pagination.Total != 7 || resp.Pagination.HasNextPage {
		t.Errorf("unexpected response: %+v", resp)
	}
}
