package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	middleware "github.com/docsage/docsage/internal/api/middlewares"
	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

type WorkspaceHandler struct {
	dbclient core.DbClient
}

func NewWorkspaceHandler(dbclient core.DbClient) *WorkspaceHandler {
	return &WorkspaceHandler{dbclient: dbclient}
}

type createWorkspaceRequest struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ws := &models.Workspace{
		UserID:       userID,
		Name:         req.Name,
		SystemPrompt: req.SystemPrompt,
	}
	if err := h.dbclient.CreateWorkspace(r.Context(), ws); err != nil {
		http.Error(w, "could not create workspace", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	workspaces, err := h.dbclient.ListWorkspacesByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if workspaces == nil {
		workspaces = []models.Workspace{}
	}

	writeJSON(w, http.StatusOK, workspaces)
}

// ListDocuments is the read-only document listing for one workspace; the
// caller must own the workspace.
func (h *WorkspaceHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	workspaceID, err := strconv.ParseInt(chi.URLParam(r, "workspaceID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid workspace id", http.StatusBadRequest)
		return
	}

	ws, err := h.dbclient.GetWorkspaceByID(r.Context(), workspaceID)
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

	documents, err := h.dbclient.ListDocumentsByWorkspace(r.Context(), workspaceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if documents == nil {
		documents = []models.Document{}
	}

	writeJSON(w, http.StatusOK, documents)
}
