package core

import "context"

// EmbeddingProvider produces fixed-length vectors for text. Document-indexing
// and query-time embeddings use different task types on the backend; mixing
// the two degrades similarity quality, so the split is part of the contract.
type EmbeddingProvider interface {
	// EmbedDocuments embeds chunks for indexing. The title labels the source
	// document and is attached to every chunk in the batch.
	EmbedDocuments(ctx context.Context, texts []string, title string) ([][]float32, error)
	// EmbedQuery embeds a user question for retrieval.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
