package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

// NoInformationAnswer is returned when no chunk clears the similarity
// threshold. Generation is skipped entirely in that case.
const NoInformationAnswer = "Sorry, I could not find relevant information in the workspace documents to answer that question."

const defaultSystemPrompt = "You are an assistant specialised in document analysis. " +
	"Answer the user's question based exclusively on the provided document excerpts. " +
	"Be precise and objective, and always ground your answer in the given text. " +
	"If the information is not in the excerpts, state clearly that you could not find the answer in the documents."

// Pipeline answers a question over a workspace's knowledge base: embed the
// question, retrieve similar chunks, generate an answer from them, and log
// the exchange.
type Pipeline struct {
	db        core.DbClient
	embedder  core.EmbeddingProvider
	llm       core.LLMProvider
	threshold float64
	topK      int
	logger    *zap.Logger
}

func NewPipeline(db core.DbClient, emb core.EmbeddingProvider, llm core.LLMProvider, threshold float64, topK int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		db:        db,
		embedder:  emb,
		llm:       llm,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}
}

// Answer runs the full query flow for an authenticated user. The Q/A pair is
// logged only after a successful generation, in one batch, so the log never
// contains a question without its answer.
func (p *Pipeline) Answer(ctx context.Context, ws *models.Workspace, userID, question string) (string, error) {
	queryVec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}

	matches, err := p.db.SearchWorkspaceChunks(ctx, ws.ID, queryVec, p.threshold, p.topK)
	if err != nil {
		return "", fmt.Errorf("search workspace %d: %w", ws.ID, err)
	}
	if len(matches) == 0 {
		p.logger.Info("no matches above threshold",
			zap.Int64("workspace_id", ws.ID), zap.Float64("threshold", p.threshold))
		return NoInformationAnswer, nil
	}

	systemPrompt := ws.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	answer, err := p.llm.Generate(ctx, systemPrompt, buildPrompt(matches, question))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	messages := []models.ChatMessage{
		{WorkspaceID: ws.ID, UserID: userID, Role: models.RoleUser, Content: question},
		{WorkspaceID: ws.ID, UserID: userID, Role: models.RoleAssistant, Content: answer},
	}
	if err := p.db.InsertChatMessages(ctx, messages); err != nil {
		return "", fmt.Errorf("log conversation: %w", err)
	}

	return answer, nil
}

// buildPrompt assembles the deterministic prompt: distinct source document
// names in retrieval order, concatenated excerpts without re-ranking, and the
// verbatim question.
func buildPrompt(matches []models.ChunkMatch, question string) string {
	var names []string
	seen := make(map[string]bool)
	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m.DocumentName] {
			seen[m.DocumentName] = true
			names = append(names, m.DocumentName)
		}
		contents = append(contents, m.Content)
	}

	var b strings.Builder
	b.WriteString("Answer the question based exclusively on the context extracted from the following documents: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\n\n**Context extracted from the documents:**\n---\n")
	b.WriteString(strings.Join(contents, "\n\n"))
	b.WriteString("\n---\n\n**User question:**\n")
	b.WriteString(question)
	b.WriteString("\n\n**Your answer:**\n")
	return b.String()
}
