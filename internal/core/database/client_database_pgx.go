package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Workspaces

func (c *DatabaseClient) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	if ws == nil {
		return errors.New("nil workspace")
	}
	const q = `
		INSERT INTO workspaces (user_id, name, system_prompt, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at
	`
	return c.db.QueryRowContext(ctx, q, ws.UserID, ws.Name, ws.SystemPrompt).
		Scan(&ws.ID, &ws.CreatedAt)
}

func (c *DatabaseClient) GetWorkspaceByID(ctx context.Context, id int64) (*models.Workspace, error) {
	const q = `
		SELECT id, user_id, name, system_prompt, created_at
		FROM workspaces WHERE id = $1
	`
	var ws models.Workspace
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&ws.ID, &ws.UserID, &ws.Name, &ws.SystemPrompt, &ws.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *DatabaseClient) ListWorkspacesByUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	const q = `
		SELECT id, user_id, name, system_prompt, created_at
		FROM workspaces
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Workspace
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.UserID, &ws.Name, &ws.SystemPrompt, &ws.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents (workspace_id, user_id, name, storage_path, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q,
		doc.WorkspaceID, doc.UserID, doc.Name, doc.StoragePath, doc.Status,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id int64) (*models.Document, error) {
	const q = `
		SELECT id, workspace_id, user_id, name, storage_path, status, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.WorkspaceID, &d.UserID, &d.Name, &d.StoragePath, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByWorkspace(ctx context.Context, workspaceID int64) ([]models.Document, error) {
	const q = `
		SELECT id, workspace_id, user_id, name, storage_path, status, created_at, updated_at
		FROM documents
		WHERE workspace_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.WorkspaceID, &d.UserID, &d.Name, &d.StoragePath, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListStuckProcessing returns ids of documents sitting in PROCESSING since
// before olderThan; the reaper requeues them.
func (c *DatabaseClient) ListStuckProcessing(ctx context.Context, olderThan time.Time) ([]int64, error) {
	const q = `
		SELECT id FROM documents
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, models.StatusProcessing, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Document chunks

func (c *DatabaseClient) DeleteChunksByDocument(ctx context.Context, documentID int64) error {
	const q = `DELETE FROM document_chunks WHERE document_id = $1`
	_, err := c.db.ExecContext(ctx, q, documentID)
	return err
}

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(document_id, workspace_id, user_id, content, embedding, page_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.DocumentID, ch.WorkspaceID, ch.UserID, ch.Content, vec, ch.PageNumber,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchWorkspaceChunks finds the top-limit chunks in a workspace whose
// cosine similarity to queryVec exceeds threshold, most similar first.
func (c *DatabaseClient) SearchWorkspaceChunks(ctx context.Context, workspaceID int64, queryVec []float32, threshold float64, limit int) ([]models.ChunkMatch, error) {
	const q = `
		SELECT dc.content, d.name, 1 - (dc.embedding <=> $2) AS similarity
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE dc.workspace_id = $1
		  AND 1 - (dc.embedding <=> $2) > $3
		ORDER BY dc.embedding <=> $2
		LIMIT $4
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, workspaceID, vec, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChunkMatch
	for rows.Next() {
		var m models.ChunkMatch
		if err := rows.Scan(&m.Content, &m.DocumentName, &m.Similarity); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Chat messages

func (c *DatabaseClient) InsertChatMessages(ctx context.Context, messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO chat_messages (workspace_id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range messages {
		m := &messages[i]
		if _, err := stmt.ExecContext(ctx, m.WorkspaceID, m.UserID, m.Role, m.Content); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
