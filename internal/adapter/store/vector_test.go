package store

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlopezv/docsearch-ai/internal/domain"
	"github.com/mlopezv/docsearch-ai/internal/port"
)

// stubAI returns fixed embeddings; embedErr makes every embed call fail.
type stubAI struct {
	embedErr error
}

func (s *stubAI) ModelName() string { return "stub" }

func (s *stubAI) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return []float32{0.1, 0.2}, nil
}

func (s *stubAI) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

func (s *stubAI) ChatStream(_ context.Context, _ string, _ float64) (<-chan port.Fragment, error) {
	ch := make(chan port.Fragment)
	close(ch)
	return ch, nil
}

func mockVectorStore(t *testing.T, ai port.AIProvider) (*VectorStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewVectorStore(&PostgresStore{db: db}, ai, 10), mock
}

func expectInserts(mock sqlmock.Sqlmock, n int) {
	mock.ExpectBegin()
	stmt := mock.ExpectPrepare("INSERT INTO chunks")
	for i := 0; i < n; i++ {
		stmt.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

func TestUpsertDeletesStaleRowsOncePerBatch(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{})

	mock.ExpectExec("DELETE FROM chunks").
		WithArgs(pq.Array([]string{"u1", "u2"})).
		WillReturnResult(sqlmock.NewResult(0, 3))
	expectInserts(mock, 3)

	err := v.Upsert(context.Background(), []domain.Chunk{
		{Content: "a", SourceURL: "u1"},
		{Content: "b", SourceURL: "u1"},
		{Content: "c", SourceURL: "u2"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertInsertsEvenWhenDeleteFails(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{})

	mock.ExpectExec("DELETE FROM chunks").
		WillReturnError(errors.New("relation lock timeout"))
	expectInserts(mock, 2)

	err := v.Upsert(context.Background(), []domain.Chunk{
		{Content: "a", SourceURL: "u1"},
		{Content: "b", SourceURL: "u2"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEmbedFailurePropagatesBeforeInsert(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{embedErr: errors.New("model offline")})

	mock.ExpectExec("DELETE FROM chunks").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := v.Upsert(context.Background(), []domain.Chunk{{Content: "a", SourceURL: "u1"}})
	require.Error(t, err)
	// no transaction was opened
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryReturnsRankedChunks(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{})

	rows := sqlmock.NewRows([]string{"content", "url", "title", "version", "similarity"}).
		AddRow("install steps", "u1", "Install Guide", "3", 0.91).
		AddRow("upgrade notes", "u2", "Upgrade Guide", "1", 0.74)
	mock.ExpectQuery("SELECT content, url, title, version").
		WithArgs("[0.1,0.2]", 0.5, 10).
		WillReturnRows(rows)

	results := v.Query(context.Background(), "how do I install", 0.5)
	require.Len(t, results, 2)
	assert.Equal(t, "install steps", results[0].Content)
	require.NotNil(t, results[0].Similarity)
	assert.InDelta(t, 0.91, *results[0].Similarity, 1e-9)
	assert.Equal(t, "Upgrade Guide", results[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryDatabaseFailureReturnsEmpty(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{})

	mock.ExpectQuery("SELECT content, url, title, version").
		WillReturnError(errors.New("connection refused"))

	assert.Empty(t, v.Query(context.Background(), "anything", 0.0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryEmbedFailureSkipsDatabase(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{embedErr: errors.New("model offline")})

	assert.Empty(t, v.Query(context.Background(), "anything", 0.0))
	// no query reached the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllFailureReturnsEmpty(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{})

	mock.ExpectQuery("SELECT url, title, version FROM chunks").
		WillReturnError(errors.New("connection refused"))

	assert.Empty(t, v.ListAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllReturnsMetadata(t *testing.T) {
	v, mock := mockVectorStore(t, &stubAI{})

	rows := sqlmock.NewRows([]string{"url", "title", "version"}).
		AddRow("u1", "Install Guide", "3").
		AddRow("u2", "Upgrade Guide", "1")
	mock.ExpectQuery("SELECT url, title, version FROM chunks").
		WillReturnRows(rows)

	metas := v.ListAll(context.Background())
	require.Len(t, metas, 2)
	assert.Equal(t, "Install Guide", metas[0].Title)
	assert.Equal(t, "u2", metas[1].SourceURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorToString(t *testing.T) {
	assert.Equal(t, "[]", vectorToString(nil))
	assert.Equal(t, "[0.5,-1,0.25]", vectorToString([]float32{0.5, -1, 0.25}))
}

func TestDistinctSourceURLs(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceURL: "u1"},
		{SourceURL: "u2"},
		{SourceURL: "u1"},
		{SourceURL: ""},
		{SourceURL: "u3"},
	}
	assert.Equal(t, []string{"u1", "u2", "u3"}, distinctSourceURLs(chunks))
}
