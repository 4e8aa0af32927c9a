package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

// Config tunes the processing pipeline.
//
// MinChunkRunes: chunks whose trimmed content is not longer than this are
// dropped before embedding; near-empty fragments waste embedding calls.
// InsertBatchSize: chunks embedded and inserted per batch, bounding payload
// size and memory on large documents.
// EmbedDim: expected embedding length; a mismatch would corrupt the
// similarity-search schema, so it fails the run.
type Config struct {
	MinChunkRunes   int
	InsertBatchSize int
	EmbedDim        int
}

// Processor runs the worker-side pipeline for one document: fetch, validate,
// download, extract, chunk, embed, persist, with the document status state
// machine as its observable side effect.
type Processor struct {
	db        core.DbClient
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor Extractor
	chunker   *Chunker
	cfg       Config
	logger    *zap.Logger
}

func NewProcessor(db core.DbClient, obj core.ObjectClient, emb core.EmbeddingProvider, ext Extractor, chunker *Chunker, cfg Config, logger *zap.Logger) *Processor {
	if cfg.MinChunkRunes <= 0 {
		cfg.MinChunkRunes = 10
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 20
	}
	return &Processor{
		db:        db,
		obj:       obj,
		embedder:  emb,
		extractor: ext,
		chunker:   chunker,
		cfg:       cfg,
		logger:    logger,
	}
}

// pendingChunk is a surviving chunk awaiting embedding.
type pendingChunk struct {
	content string
	page    int
}

// Process executes the pipeline for a single document id. Delivery is
// at-least-once, so the whole pipeline is written to converge when re-run:
// existing chunks are deleted before re-insertion. Any failure after the
// document row is found marks the document FAILED (best-effort) and
// propagates, so the queue's bookkeeping observes it.
func (p *Processor) Process(ctx context.Context, documentID int64) error {
	doc, err := p.db.GetDocumentByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document %d: %w", documentID, err)
	}
	if doc == nil {
		return fmt.Errorf("document %d: %w", documentID, core.ErrNotFound)
	}

	if err := p.run(ctx, doc); err != nil {
		// The status write must not depend on the (possibly cancelled)
		// request context, and its own failure never masks the cause.
		failCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if sErr := p.db.UpdateDocumentStatus(failCtx, documentID, models.StatusFailed); sErr != nil {
			p.logger.Error("failed to mark document FAILED",
				zap.Int64("document_id", documentID), zap.Error(sErr))
		}
		return err
	}

	if err := p.db.UpdateDocumentStatus(ctx, documentID, models.StatusCompleted); err != nil {
		return fmt.Errorf("mark document %d COMPLETED: %w", documentID, err)
	}
	p.logger.Info("document processed", zap.Int64("document_id", documentID))
	return nil
}

func (p *Processor) run(ctx context.Context, doc *models.Document) error {
	if doc.StoragePath == "" || doc.WorkspaceID == 0 || doc.UserID == "" {
		return fmt.Errorf("document %d is missing storage_path, workspace_id or user_id: %w",
			doc.ID, core.ErrValidation)
	}

	if err := p.db.UpdateDocumentStatus(ctx, doc.ID, models.StatusProcessing); err != nil {
		return fmt.Errorf("mark document %d PROCESSING: %w", doc.ID, err)
	}

	blob, err := p.obj.GetFile(ctx, doc.StoragePath)
	if err != nil {
		return fmt.Errorf("download %q: %w", doc.StoragePath, err)
	}
	if len(blob) == 0 {
		return fmt.Errorf("download %q: empty file", doc.StoragePath)
	}

	pages, err := p.extractor.ExtractPages(blob)
	if err != nil {
		return fmt.Errorf("extract document %d: %w", doc.ID, err)
	}

	var pending []pendingChunk
	for _, page := range pages {
		for _, content := range p.chunker.Chunk(page.Text) {
			if utf8.RuneCountInString(strings.TrimSpace(content)) <= p.cfg.MinChunkRunes {
				continue
			}
			pending = append(pending, pendingChunk{content: content, page: page.Number})
		}
	}

	// Redelivered jobs re-run the whole pipeline; dropping prior chunks first
	// keeps the final chunk set free of duplicates.
	if err := p.db.DeleteChunksByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete existing chunks for document %d: %w", doc.ID, err)
	}

	title := fmt.Sprintf("Chunk from %s", doc.Name)
	for start := 0; start < len(pending); start += p.cfg.InsertBatchSize {
		end := start + p.cfg.InsertBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := p.embedAndInsert(ctx, doc, pending[start:end], title); err != nil {
			return err
		}
	}

	p.logger.Info("chunks persisted",
		zap.Int64("document_id", doc.ID),
		zap.Int("chunks", len(pending)),
		zap.Int("pages", len(pages)))
	return nil
}

func (p *Processor) embedAndInsert(ctx context.Context, doc *models.Document, batch []pendingChunk, title string) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.content
	}

	vecs, err := p.embedder.EmbedDocuments(ctx, texts, title)
	if err != nil {
		return fmt.Errorf("embed chunks for document %d: %w", doc.ID, err)
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("embed chunks for document %d: got %d embeddings for %d chunks",
			doc.ID, len(vecs), len(batch))
	}

	rows := make([]models.DocumentChunk, len(batch))
	for i, c := range batch {
		if p.cfg.EmbedDim > 0 && len(vecs[i]) != p.cfg.EmbedDim {
			return fmt.Errorf("embed chunks for document %d: dimension %d, want %d",
				doc.ID, len(vecs[i]), p.cfg.EmbedDim)
		}
		rows[i] = models.DocumentChunk{
			DocumentID:  doc.ID,
			WorkspaceID: doc.WorkspaceID,
			UserID:      doc.UserID,
			Content:     c.content,
			Embedding:   vecs[i],
			PageNumber:  c.page,
		}
	}

	if err := p.db.InsertDocumentChunks(ctx, rows); err != nil {
		return fmt.Errorf("insert chunks for document %d: %w", doc.ID, err)
	}
	return nil
}
