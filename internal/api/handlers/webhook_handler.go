package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
)

// WebhookHandler is the push-variant change detector: the database calls it
// with a row-change payload whenever the documents relation changes.
type WebhookHandler struct {
	dispatcher core.Dispatcher
	logger     *zap.Logger
}

func NewWebhookHandler(dispatcher core.Dispatcher, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, logger: logger}
}

type webhookPayload struct {
	Type      string         `json:"type"`
	Table     string         `json:"table"`
	Schema    string         `json:"schema"`
	Record    map[string]any `json:"record"`
	OldRecord map[string]any `json:"old_record"`
}

// HandleDocumentChange dispatches processing for INSERTs on the documents
// table. Any other operation or table is acknowledged without action.
func (h *WebhookHandler) HandleDocumentChange(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	if payload.Type != "INSERT" || payload.Table != "documents" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "webhook received, no action taken"})
		return
	}

	documentID, ok := recordID(payload.Record)
	if !ok {
		http.Error(w, "document id not found in webhook payload", http.StatusBadRequest)
		return
	}

	if err := h.dispatcher.Enqueue(r.Context(), documentID); err != nil {
		h.logger.Error("webhook dispatch failed",
			zap.Int64("document_id", documentID), zap.Error(err))
		http.Error(w, "failed to enqueue document processing", http.StatusInternalServerError)
		return
	}

	h.logger.Info("webhook dispatched document", zap.Int64("document_id", documentID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "document processing enqueued"})
}

// recordID pulls the integer document id out of a decoded JSON record.
func recordID(record map[string]any) (int64, bool) {
	v, ok := record["id"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}
