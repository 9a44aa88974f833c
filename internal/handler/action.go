package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/service"
	"github.com/BuzzLyutic/collab-board/pkg/respond"
)

type ActionHandler struct {
	service *service.ActionService
	logger  *zap.Logger
}

func NewActionHandler(srv *service.ActionService, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{service: srv, logger: logger}
}

func (h *ActionHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	actions, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respond.JSON(w, r, http.StatusOK, actions)
}
