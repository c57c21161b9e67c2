package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/project-tracker-backend/internal/http/response"
	"github.com/sandeepkv93/project-tracker-backend/internal/observability"
	"github.com/sandeepkv93/project-tracker-backend/internal/service"
)

type ProjectHandler struct {
	svc service.ProjectServiceInterface
}

func NewProjectHandler(svc service.ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var body service.CreateProjectInput
	if !decodeJSON(w, r, &body) {
		return
	}
	created, err := h.svc.Create(r.Context(), id, body)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "project.create",
		ActorUserID: id.UserID,
		TargetType:  "project",
		TargetID:    created.ID,
		Action:      "create",
		Outcome:     "success",
		Reason:      "project_created",
	})
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	start := time.Now()
	values := r.URL.Query()
	q, err := parseListQuery(values)
	defer observeList(r, "project", start, q.PerPage, &err)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	action, err := boolParam(values, "action")
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	params := service.ProjectListParams{
		Name:   strings.TrimSpace(values.Get("name")),
		ID:     strings.TrimSpace(values.Get("id")),
		Action: action,
	}
	page, err := h.svc.List(r.Context(), id, params, q)
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	response.Cacheable(w, r, http.StatusOK, paginatedData(page))
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	project, err := h.svc.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	response.JSON(w, r, http.StatusOK, project)
}

// Complete marks the project done. Repeating it leaves the project unchanged.
func (h *ProjectHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	project, err := h.svc.Complete(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "project.complete",
		ActorUserID: id.UserID,
		TargetType:  "project",
		TargetID:    project.ID,
		Action:      "complete",
		Outcome:     "success",
		Reason:      "project_completed",
	})
	response.JSON(w, r, http.StatusOK, project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	project, removed, err := h.svc.Delete(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "project")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "project.delete",
		ActorUserID: id.UserID,
		TargetType:  "project",
		TargetID:    project.ID,
		Action:      "delete",
		Outcome:     "success",
		Reason:      "project_deleted",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{
		"deleted":       true,
		"id":            project.ID,
		"tasks_removed": removed,
	})
}
