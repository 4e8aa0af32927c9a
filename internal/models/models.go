package models

import (
	"time"
)

// Document status values. COMPLETED and FAILED are terminal for a given
// processing run; the reaper may move a stuck PROCESSING row back to PENDING.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Workspace groups a user's documents under one knowledge base. Name is
// unique per user; SystemPrompt, when set, steers answer generation.
type Workspace struct {
	ID           int64     `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	SystemPrompt string    `db:"system_prompt" json:"system_prompt"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Document represents a user-uploaded PDF. Status is mutated only by the
// background processor once the row exists.
type Document struct {
	ID          int64     `db:"id" json:"id"`
	WorkspaceID int64     `db:"workspace_id" json:"workspace_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentChunk is one embedded slice of a document's text. Rows are written
// only by the processor and are immutable afterwards; WorkspaceID and UserID
// always equal the owning document's.
type DocumentChunk struct {
	ID          int64     `db:"id" json:"id"`
	DocumentID  int64     `db:"document_id" json:"document_id"`
	WorkspaceID int64     `db:"workspace_id" json:"workspace_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Content     string    `db:"content" json:"content"`
	Embedding   []float32 `db:"embedding" json:"embedding"` // pgvector column
	PageNumber  int       `db:"page_number" json:"page_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ChunkMatch is one similarity-search hit: chunk content plus the name of the
// document it came from, used as the source label in prompts.
type ChunkMatch struct {
	Content      string  `json:"content"`
	DocumentName string  `json:"document_name"`
	Similarity   float64 `json:"similarity"`
}

// ChatMessage is an individual chat turn (user question or assistant answer).
type ChatMessage struct {
	ID          int64     `db:"id" json:"id"`
	WorkspaceID int64     `db:"workspace_id" json:"workspace_id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Role        string    `db:"role" json:"role"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
