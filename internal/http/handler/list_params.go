package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

// parseListQuery reads page, per_page, sort_by and order with their defaults.
// Values are passed through verbatim; range, sortability and the exact
// asc/desc spelling are checked when the query is executed.
func parseListQuery(values url.Values) (repository.ListQuery, error) {
	q := repository.DefaultListQuery()
	var err error
	if q.Page, err = intParam(values, "page", q.Page); err != nil {
		return q, err
	}
	if q.PerPage, err = intParam(values, "per_page", q.PerPage); err != nil {
		return q, err
	}
	if raw := strings.TrimSpace(values.Get("sort_by")); raw != "" {
		q.SortBy = raw
	}
	if raw := strings.TrimSpace(values.Get("order")); raw != "" {
		q.Order = raw
	}
	return q, nil
}

func intParam(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

// boolParam keeps an explicit false distinct from an absent parameter.
func boolParam(values url.Values, name string) (*bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, service.NewValidationError(name, "must be a boolean")
	}
	return &v, nil
}

func paginatedData[T any](page repository.PageResult[T]) map[string]any {
	return map[string]any{
		"items": page.Items,
		"pagination": map[string]any{
			"page":        page.Page,
			"per_page":    page.PerPage,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
	}
}

func observeList(r *http.Request, resource string, start time.Time, perPage int, errp *error) {
	status := "success"
	if *errp != nil {
		status = "error"
		if _, ok := service.IsValidation(*errp); ok {
			status = "bad_request"
		}
	}
	observability.RecordListRequestDuration(r.Context(), resource, status, time.Since(start))
	if status == "success" {
		observability.RecordListPageSize(r.Context(), resource, perPage)
	}
}
