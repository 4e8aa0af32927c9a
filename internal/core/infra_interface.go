package core

import (
	"context"
	"io"
	"time"

	"github.com/docsage/docsage/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	GetWorkspaceByID(ctx context.Context, id int64) (*models.Workspace, error)
	ListWorkspacesByUser(ctx context.Context, userID string) ([]models.Workspace, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id int64) (*models.Document, error)
	ListDocumentsByWorkspace(ctx context.Context, workspaceID int64) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id int64, status string) error
	ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]int64, error)

	DeleteChunksByDocument(ctx context.Context, documentID int64) error
	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	SearchWorkspaceChunks(ctx context.Context, workspaceID int64, queryVec []float32, threshold float64, limit int) ([]models.ChunkMatch, error)

	InsertChatMessages(ctx context.Context, messages []models.ChatMessage) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be swapped for MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) error
	GetFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// Dispatcher places a document id on the durable work queue. A publish
// failure must surface to the caller; a silently dropped job leaves the
// document stuck PENDING.
type Dispatcher interface {
	Enqueue(ctx context.Context, documentID int64) error
}
