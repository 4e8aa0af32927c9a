package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	middleware "github.com/docsage/docsage/internal/api/middlewares"
	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	dispatcher   core.Dispatcher
	logger       *zap.Logger
}

func NewDocumentHandler(dbclient core.DbClient, objectclient core.ObjectClient, dispatcher core.Dispatcher, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		dbclient:     dbclient,
		objectclient: objectclient,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// Upload stores the PDF blob, creates the PENDING document row and dispatches
// a processing job. Processing itself happens on the worker; callers poll the
// document status for the outcome.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(52 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	workspaceID, err := strconv.ParseInt(r.FormValue("workspace_id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid workspace_id", http.StatusBadRequest)
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

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Strips any path components from the client-supplied name.
	cleanFilename := filepath.Base(header.Filename)
	key := fmt.Sprintf("%s/%d/%s/%s", userID, workspaceID, uuid.NewString(), cleanFilename)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	if err := h.objectclient.UploadFile(r.Context(), key, file, contentType); err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	doc := &models.Document{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Name:        cleanFilename,
		StoragePath: key,
		Status:      models.StatusPending,
	}
	if err := h.dbclient.CreateDocument(r.Context(), doc); err != nil {
		h.logger.Error("document insert failed", zap.String("key", key), zap.Error(err))
		http.Error(w, "failed to store document metadata", http.StatusInternalServerError)
		return
	}

	if err := h.dispatcher.Enqueue(r.Context(), doc.ID); err != nil {
		h.logger.Error("dispatch failed", zap.Int64("document_id", doc.ID), zap.Error(err))
		http.Error(w, "failed to enqueue document processing", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, doc)
}

// Process is the manual enqueue endpoint: the caller must own the document.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid document id", http.StatusBadRequest)
		return
	}

	doc, err := h.dbclient.GetDocumentByID(r.Context(), documentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if doc.UserID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.dispatcher.Enqueue(r.Context(), doc.ID); err != nil {
		h.logger.Error("dispatch failed", zap.Int64("document_id", doc.ID), zap.Error(err))
		http.Error(w, "failed to enqueue document processing", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
