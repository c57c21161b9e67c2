package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/project-tracker-backend/internal/domain"
	"github.com/sandeepkv93/project-tracker-backend/internal/repository"
	"github.com/sandeepkv93/project-tracker-backend/internal/security"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
	servicegomock "github.com/sandeepkv93/project-tracker-backend/internal/service/gomock"
)

func newProjectRouter(svc service.ProjectServiceInterface) http.Handler {
	h := NewProjectHandler(svc)
	return newTestRouter(func(r chi.Router) {
		r.Get("/project", h.List)
		r.Post("/project", h.Create)
		r.Get("/project/{id}", h.Get)
		r.Put("/project/{id}", h.Complete)
		r.Delete("/project/{id}", h.Delete)
	})
}

func TestProjectHandlerListParsesParams(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := servicegomock.NewMockProjectServiceInterface(ctrl)
	r := newProjectRouter(svc)

	t.Run("defaults", func(t *testing.T) {
		svc.EXPECT().List(gomock.Any(), testIdentity, service.ProjectListParams{}, repository.DefaultListQuery()).
			Return(repository.PageResult[domain.Project]{Items: []domain.Project{}, Page: 1, PerPage: 10}, nil)
		rr := serve(t, r, http.MethodGet, "/project", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
		var env struct {
			Data struct {
				Items      []any          `json:"items"`
				Pagination map[string]any `json:"pagination"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Data.Items == nil || env.Data.Pagination["per_page"] != float64(10) {
			t.Fatalf("unexpected list body %s", rr.Body.String())
		}
	})

	t.Run("explicit false action and ordering", func(t *testing.T) {
		svc.EXPECT().List(gomock.Any(), testIdentity, gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ security.Identity, params service.ProjectListParams, q repository.ListQuery) (repository.PageResult[domain.Project], error) {
				if params.Action == nil || *params.Action {
					t.Fatalf("expected explicit action=false, got %+v", params.Action)
				}
				if params.Name != "alpha" || params.ID != "p-1" {
					t.Fatalf("unexpected params %+v", params)
				}
				if q.Page != 2 || q.PerPage != 5 || q.SortBy != "created" || q.Order != repository.SortDesc {
					t.Fatalf("unexpected list query %+v", q)
				}
				return repository.PageResult[domain.Project]{Items: []domain.Project{}, Page: 2, PerPage: 5}, nil
			})
		rr := serve(t, r, http.MethodGet, "/project?name=alpha&id=p-1&action=false&page=2&per_page=5&sort_by=created&order=desc", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
		}
	})

	t.Run("sort values are passed through verbatim", func(t *testing.T) {
		svc.EXPECT().List(gomock.Any(), testIdentity, gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, _ security.Identity, _ service.ProjectListParams, q repository.ListQuery) (repository.PageResult[domain.Project], error) {
				if q.SortBy != "Name" || q.Order != "DESC" {
					t.Fatalf("expected raw sort values, got %+v", q)
				}
				return repository.PageResult[domain.Project]{}, service.NewValidationError("query", "order must be asc or desc")
			})
		rr := serve(t, r, http.MethodGet, "/project?sort_by=Name&order=DESC", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for upper-case order, got %d body=%s", rr.Code, rr.Body.String())
		}
	})

	t.Run("malformed params never reach the service", func(t *testing.T) {
		for _, q := range []string{"page=two", "per_page=1.5", "action=maybe"} {
			rr := serve(t, r, http.MethodGet, "/project?"+q, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", q, rr.Code)
			}
			if env := decodeError(t, rr); env.Error.Code != "BAD_REQUEST" || len(env.Error.Details) == 0 {
				t.Fatalf("%s: expected field details, got %+v", q, env.Error)
			}
		}
	})
}

func TestProjectHandlerCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := servicegomock.NewMockProjectServiceInterface(ctrl)
	r := newProjectRouter(svc)

	svc.EXPECT().Create(gomock.Any(), testIdentity, service.CreateProjectInput{Name: "Alpha project"}).
		Return(&domain.Project{ID: "p-1", Name: "Alpha project", CreatedAt: time.Now()}, nil)
	if rr := serve(t, r, http.MethodPost, "/project", `{"name":"Alpha project"}`); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	svc.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, service.NewValidationError("name", "must be at least 6 characters"))
	rr := serve(t, r, http.MethodPost, "/project", `{"name":"tiny"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if env := decodeError(t, rr); env.Error.Details["name"] == "" {
		t.Fatalf("expected name detail, got %+v", env.Error)
	}

	if rr := serve(t, r, http.MethodPost, "/project", `{"name":`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rr.Code)
	}
}

func TestProjectHandlerErrorMapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := servicegomock.NewMockProjectServiceInterface(ctrl)
	r := newProjectRouter(svc)

	svc.EXPECT().Get(gomock.Any(), testIdentity, "p-foreign").Return(nil, repository.ErrNotFound)
	rr := serve(t, r, http.MethodGet, "/project/p-foreign", "")
	if rr.Code != http.StatusNotFound || decodeError(t, rr).Error.Code != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}

	svc.EXPECT().Complete(gomock.Any(), testIdentity, "p-1").Return(nil, errors.New("connection reset"))
	rr = serve(t, r, http.MethodPut, "/project/p-1", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if env := decodeError(t, rr); env.Error.Message == "connection reset" {
		t.Fatal("store error text must not leak to the client")
	}

	svc.EXPECT().Delete(gomock.Any(), testIdentity, "p-1").Return(&domain.Project{ID: "p-1"}, int64(2), nil)
	rr = serve(t, r, http.MethodDelete, "/project/p-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var env struct {
		Data struct {
			Deleted      bool  `json:"deleted"`
			TasksRemoved int64 `json:"tasks_removed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || !env.Data.Deleted || env.Data.TasksRemoved != 2 {
		t.Fatalf("unexpected delete body %s (err=%v)", rr.Body.String(), err)
	}
}
