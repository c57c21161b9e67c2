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

// TaskHandler serves tasks nested under /project/{id}/task. The project id
// always comes from the path.
type TaskHandler struct {
	svc service.TaskServiceInterface
}

func NewTaskHandler(svc service.TaskServiceInterface) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var body service.CreateTaskInput
	if !decodeJSON(w, r, &body) {
		return
	}
	created, err := h.svc.Create(r.Context(), id, chi.URLParam(r, "id"), body)
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "task.create",
		ActorUserID: id.UserID,
		TargetType:  "task",
		TargetID:    created.ID,
		Action:      "create",
		Outcome:     "success",
		Reason:      "task_created",
	})
	response.JSON(w, r, http.StatusCreated, created)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	start := time.Now()
	values := r.URL.Query()
	q, err := parseListQuery(values)
	defer observeList(r, "task", start, q.PerPage, &err)
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	action, err := boolParam(values, "action")
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	params := service.TaskListParams{
		Title:  strings.TrimSpace(values.Get("title")),
		Name:   strings.TrimSpace(values.Get("name")),
		ID:     strings.TrimSpace(values.Get("id")),
		Action: action,
	}
	page, err := h.svc.List(r.Context(), id, chi.URLParam(r, "id"), params, q)
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	response.Cacheable(w, r, http.StatusOK, paginatedData(page))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Get(r.Context(), id, chi.URLParam(r, "id"), chi.URLParam(r, "task_id"))
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	response.JSON(w, r, http.StatusOK, task)
}

// Complete sets action and stamps date_complete on the first call only.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Complete(r.Context(), id, chi.URLParam(r, "id"), chi.URLParam(r, "task_id"))
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "task.complete",
		ActorUserID: id.UserID,
		TargetType:  "task",
		TargetID:    task.ID,
		Action:      "complete",
		Outcome:     "success",
		Reason:      "task_completed",
	})
	response.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	task, err := h.svc.Delete(r.Context(), id, chi.URLParam(r, "id"), chi.URLParam(r, "task_id"))
	if err != nil {
		writeServiceError(w, r, err, "task")
		return
	}
	observability.Audit(r, observability.AuditInput{
		EventName:   "task.delete",
		ActorUserID: id.UserID,
		TargetType:  "task",
		TargetID:    task.ID,
		Action:      "delete",
		Outcome:     "success",
		Reason:      "task_deleted",
	})
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true, "id": task.ID})
}
