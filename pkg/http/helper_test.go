package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "ejeapi/pkg/errors"
)

func TestExtractPageLimit(t *testing.T) {
	paging := Paging{DefaultLimit: 20, MaxLimit: 100}

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{name: "defaults", query: "", wantPage: 1, wantLimit: 20},
		{name: "explicit", query: "?page=3&limit=50", wantPage: 3, wantLimit: 50},
		{name: "limit capped", query: "?limit=500", wantPage: 1, wantLimit: 100},
		{name: "zero page clamped", query: "?page=0", wantPage: 1, wantLimit: 20},
		{name: "negative limit uses default", query: "?limit=-4", wantPage: 1, wantLimit: 20},
		{name: "invalid page", query: "?page=abc", wantErr: true},
		{name: "invalid limit", query: "?limit=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/causas-eje/search"+tt.query, nil)
			page, limit, err := ExtractPageLimit(r, paging)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("got page=%d limit=%d, want page=%d limit=%d", page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestBuildPageMeta(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		page  int
		limit int
		want  PageMeta
	}{
		{
			name: "first of many", total: 45, page: 1, limit: 20,
			want: PageMeta{Page: 1, Limit: 20, Total: 45, TotalPages: 3, HasNextPage: true, HasPrevPage: false},
		},
		{
			name: "last page", total: 45, page: 3, limit: 20,
			want: PageMeta{Page: 3, Limit: 20, Total: 45, TotalPages: 3, HasNextPage: false, HasPrevPage: true},
		},
		{
			name: "empty", total: 0, page: 1, limit: 20,
			want: PageMeta{Page: 1, Limit: 20, Total: 0, TotalPages: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildPageMeta(tt.total, tt.page, tt.limit); got != tt.want {
				t.Errorf("BuildPageMeta() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?verified=true&isValid=nope", nil)

	v, err := QueryBool(r, "verified")
	if err != nil || v == nil || !*v {
		t.Errorf("expected verified=true, got %v, %v", v, err)
	}

	v, err = QueryBool(r, "isPrivate")
	if err != nil || v != nil {
		t.Errorf("expected absent flag to be nil, got %v, %v", v, err)
	}

	if _, err := QueryBool(r, "isValid"); err == nil {
		t.Error("expected error for invalid boolean")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "not found", err: apperrors.NotFound("Causa"), wantStatus: http.StatusNotFound, wantMsg: "Causa not found"},
		{name: "conflict", err: apperrors.Conflict("pivot already resolved"), wantStatus: http.StatusConflict, wantMsg: "pivot already resolved"},
		{name: "internal hides cause", err: apperrors.Internal("db exploded", nil), wantStatus: http.StatusInternalServerError, wantMsg: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			_ = WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantMsg)
			}
		})
	}
}
