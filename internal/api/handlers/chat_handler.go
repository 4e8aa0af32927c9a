package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	middleware "github.com/docsage/docsage/internal/api/middlewares"
	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/core/rag"
)

type ChatHandler struct {
	dbclient core.DbClient
	pipeline *rag.Pipeline
	logger   *zap.Logger
}

func NewChatHandler(dbclient core.DbClient, pipeline *rag.Pipeline, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{dbclient: dbclient, pipeline: pipeline, logger: logger}
}

type chatRequest struct {
	WorkspaceID int64  `json:"workspace_id"`
	Question    string `json:"question"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	ws, err := h.dbclient.GetWorkspaceByID(r.Context(), req.WorkspaceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ws == nil {
		http.Error(w, "workspace not found", http.StatusNotFound)
		return
	}
	if ws.UserID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	answer, err := h.pipeline.Answer(r.Context(), ws, userID, req.Question)
	if err != nil {
		h.logger.Error("chat pipeline failed",
			zap.Int64("workspace_id", ws.ID), zap.Error(err))
		http.Error(w, "could not process the question", httpStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}
