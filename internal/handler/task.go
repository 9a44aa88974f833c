package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/model"
	"github.com/BuzzLyutic/collab-board/internal/repo"
	"github.com/BuzzLyutic/collab-board/internal/service"
	"github.com/BuzzLyutic/collab-board/pkg/respond"
)

const (
	HeaderUser     = "X-User"
	HeaderClientID = "X-Client-ID"

	AnonymousActor = "anonymous"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

type updateRequest struct {
	Data *model.TaskPatch `json:"data"`
	User string           `json:"user"`
}

type deleteRequest struct {
	User string `json:"user"`
}

type conflictResponse struct {
	Conflict  bool            `json:"conflict"`
	Current   model.Task      `json:"current"`
	Attempted model.TaskPatch `json:"attempted"`
}

// actor: заголовок X-User, затем поле user из тела.
func actor(r *http.Request, bodyUser string) string {
	if u := strings.TrimSpace(r.Header.Get(HeaderUser)); u != "" {
		return u
	}
	if u := strings.TrimSpace(bodyUser); u != "" {
		return u
	}
	return AnonymousActor
}

func withOrigin(r *http.Request) *http.Request {
	if id := r.Header.Get(HeaderClientID); id != "" {
		return r.WithContext(service.WithOrigin(r.Context(), id))
	}
	return r
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.List(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.NewTask
	if err := respond.Decode(w, r, &req); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	r = withOrigin(r)
	idempKey := r.Header.Get("Idempotency-Key")
	task, err := h.service.Create(r.Context(), req, actor(r, req.User), idempKey)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/tasks/"+task.ID)
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}
	if req.Data == nil {
		respond.Error(w, r, http.StatusBadRequest, "missing data")
		return
	}

	r = withOrigin(r)
	task, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), *req.Data, actor(r, req.User))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := respond.Decode(w, r, &req); err != nil && !errors.Is(err, respond.ErrEmptyBody) {
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}

	r = withOrigin(r)
	if _, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), actor(r, req.User)); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.Message(w, r, http.StatusOK, "Task deleted")
}

func (h *TaskHandler) SmartAssign(w http.ResponseWriter, r *http.Request) {
	r = withOrigin(r)
	task, err := h.service.SmartAssign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		respond.JSON(w, r, http.StatusConflict, conflictResponse{
			Conflict:  true,
			Current:   conflict.Current,
			Attempted: conflict.Attempted,
		})
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err), zap.String("path", r.URL.Path))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
