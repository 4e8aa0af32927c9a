package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/core"
	"github.com/docsage/docsage/internal/models"
)

type fakeStore struct {
	core.DbClient

	matches   []models.ChunkMatch
	searchErr error
	logErr    error

	searchedWorkspace int64
	searchedLimit     int
	logged            [][]models.ChatMessage
}

func (f *fakeStore) SearchWorkspaceChunks(_ context.Context, workspaceID int64, _ []float32, _ float64, limit int) ([]models.ChunkMatch, error) {
	f.searchedWorkspace = workspaceID
	f.searchedLimit = limit
	return f.matches, f.searchErr
}

func (f *fakeStore) InsertChatMessages(_ context.Context, messages []models.ChatMessage) error {
	if f.logErr != nil {
		return f.logErr
	}
	batch := make([]models.ChatMessage, len(messages))
	copy(batch, messages)
	f.logged = append(f.logged, batch)
	return nil
}

type fakeQueryEmbedder struct {
	err error
}

func (f *fakeQueryEmbedder) EmbedDocuments(_ context.Context, texts []string, _ string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeLLM struct {
	answer string
	err    error

	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.answer, f.err
}

func testWorkspace() *models.Workspace {
	return &models.Workspace{ID: 11, UserID: "user-1", Name: "contracts"}
}

func TestAnswerNoMatches(t *testing.T) {
	store := &fakeStore{}
	llm := &fakeLLM{answer: "should never be used"}
	p := NewPipeline(store, &fakeQueryEmbedder{}, llm, 0.2, 5, zap.NewNop())

	answer, err := p.Answer(context.Background(), testWorkspace(), "user-1", "what is clause 4?")
	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, answer)
	assert.Zero(t, llm.calls, "generation must be skipped on zero matches")
	assert.Empty(t, store.logged, "no chat rows on zero matches")
	assert.Equal(t, int64(11), store.searchedWorkspace)
	assert.Equal(t, 5, store.searchedLimit)
}

func TestAnswerSuccess(t *testing.T) {
	store := &fakeStore{matches: []models.ChunkMatch{
		{Content: "termination requires 30 days notice", DocumentName: "a.pdf", Similarity: 0.9},
		{Content: "fees are due monthly", DocumentName: "b.pdf", Similarity: 0.8},
		{Content: "notice must be written", DocumentName: "a.pdf", Similarity: 0.7},
	}}
	llm := &fakeLLM{answer: "30 days, in writing."}
	p := NewPipeline(store, &fakeQueryEmbedder{}, llm, 0.2, 5, zap.NewNop())

	answer, err := p.Answer(context.Background(), testWorkspace(), "user-1", "how do I terminate?")
	require.NoError(t, err)
	assert.Equal(t, "30 days, in writing.", answer)

	assert.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.lastUser, "a.pdf, b.pdf", "distinct names in retrieval order")
	assert.Contains(t, llm.lastUser, "termination requires 30 days notice")
	assert.Contains(t, llm.lastUser, "how do I terminate?")

	require.Len(t, store.logged, 1)
	batch := store.logged[0]
	require.Len(t, batch, 2)
	assert.Equal(t, models.RoleUser, batch[0].Role)
	assert.Equal(t, "how do I terminate?", batch[0].Content)
	assert.Equal(t, models.RoleAssistant, batch[1].Role)
	assert.Equal(t, "30 days, in writing.", batch[1].Content)
	assert.Equal(t, int64(11), batch[0].WorkspaceID)
	assert.Equal(t, "user-1", batch[1].UserID)
}

func TestAnswerWorkspaceSystemPrompt(t *testing.T) {
	store := &fakeStore{matches: []models.ChunkMatch{{Content: "x", DocumentName: "a.pdf"}}}
	llm := &fakeLLM{answer: "ok"}
	p := NewPipeline(store, &fakeQueryEmbedder{}, llm, 0.2, 5, zap.NewNop())

	ws := testWorkspace()
	ws.SystemPrompt = "Answer like a lawyer."
	_, err := p.Answer(context.Background(), ws, "user-1", "q")
	require.NoError(t, err)
	assert.Equal(t, "Answer like a lawyer.", llm.lastSystem)

	_, err = p.Answer(context.Background(), testWorkspace(), "user-1", "q")
	require.NoError(t, err)
	assert.Equal(t, defaultSystemPrompt, llm.lastSystem)
}

func TestAnswerGenerationFailureLogsNothing(t *testing.T) {
	store := &fakeStore{matches: []models.ChunkMatch{{Content: "x", DocumentName: "a.pdf"}}}
	boom := errors.New("model overloaded")
	p := NewPipeline(store, &fakeQueryEmbedder{}, &fakeLLM{err: boom}, 0.2, 5, zap.NewNop())

	_, err := p.Answer(context.Background(), testWorkspace(), "user-1", "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.logged, "failed generations must leave no chat rows")
}

func TestAnswerSearchFailure(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("db down")}
	llm := &fakeLLM{}
	p := NewPipeline(store, &fakeQueryEmbedder{}, llm, 0.2, 5, zap.NewNop())

	_, err := p.Answer(context.Background(), testWorkspace(), "user-1", "q")
	require.Error(t, err)
	assert.Zero(t, llm.calls)
}
