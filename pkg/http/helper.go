package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "ejeapi/pkg/errors"
)

// Paging bounds applied by ExtractPageLimit.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

// ExtractPageLimit reads ?page and ?limit. page is clamped to >= 1, limit
// falls back to the default when absent and is capped at the max.
func ExtractPageLimit(r *http.Request, paging Paging) (int, int, error) {
	query := r.URL.Query()

	page := 1
	if s := query.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid page parameter: " + s)
		}
		page = v
	}

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	page = max(1, page)
	if limit <= 0 {
		limit = paging.DefaultLimit
	}
	if paging.MaxLimit > 0 {
		limit = min(limit, paging.MaxLimit)
	}

	return page, limit, nil
}

// QueryBool parses an optional boolean query parameter. nil means absent.
func QueryBool(r *http.Request, key string) (*bool, error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return &v, nil
}

// QueryInt parses an optional integer query parameter, returning fallback
// when absent.
func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperrors.InvalidInput("invalid " + key + " parameter: " + s)
	}
	return v, nil
}

// DecodeJSON decodes the request body into dst. An empty body is reported
// as invalid input.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is empty")
		}
		return apperrors.InvalidInput("invalid JSON body")
	}
	return nil
}
