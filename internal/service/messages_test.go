package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/pagination"
)

// MockMessageRepo mocks the full message repository
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*MessagePageResult, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessagePageResult), args.Error(1)
}

func (m *MockMessageRepo) GetFirstN(ctx context.Context, n int) ([]*domain.Message, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMessageRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessageRepo) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func (m *MockMessageRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockClassifyJobRepo mocks the classify job repository
type MockClassifyJobRepo struct {
	mock.Mock
}

func (m *MockClassifyJobRepo) Create(ctx context.Context, job *domain.ClassifyJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockArchiver mocks the import payload archiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) ArchiveImport(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}

func TestMessagesService_Create_NormalizesBody(t *testing.T) {
	repo := new(MockMessageRepo)
	embedder := new(MockEmbeddingClient)
	svc := NewMessagesService(repo, nil, embedder, nil)

	htmlBody := "<html><body><p>meeting at noon</p></body></html>"
	encoded := base64.StdEncoding.EncodeToString([]byte(htmlBody))

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)

	var created *domain.Message
	repo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Message)
		}).Return(nil)

	_, err := svc.Create(context.Background(), CreateMessageInput{
		ID:           "msg-1",
		Subject:      "Lunch",
		Sender:       "a@example.com",
		To:           []string{"b@example.com"},
		Body:         encoded,
		BodyIsBase64: true,
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "meeting at noon", created.Body)
	assert.Equal(t, []float32{0.1}, created.Embedding)
}

func TestMessagesService_Create_InvalidInput(t *testing.T) {
	svc := NewMessagesService(new(MockMessageRepo), nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateMessageInput{
		ID:      "msg-1",
		Subject: "no sender",
		To:      []string{"b@example.com"},
	})

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestImportFromJSONL_SkipsBadRecords(t *testing.T) {
	repo := new(MockMessageRepo)
	embedder := new(MockEmbeddingClient)
	svc := NewMessagesService(repo, nil, embedder, nil)

	goodBody := base64.StdEncoding.EncodeToString([]byte("hello"))
	input := strings.Join([]string{
		`{"id": "msg-1", "subject": "A", "from": "a@example.com", "to": ["b@example.com"], "body": "` + goodBody + `"}`,
		`{"id": "msg-2", "subject": "B", "from": "a@example.com", "to": ["b@example.com"], "date": "not-a-date"}`,
		`{"id": "msg-3", "subject": "C", "from": "a@example.com", "to": ["b@example.com"]}`,
	}, "\n")

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetFirstN", mock.Anything, 5).Return([]*domain.Message{}, nil)

	result, err := svc.ImportFromJSONL(context.Background(), strings.NewReader(input), ImportOptions{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "msg-2", result.Failures[0].MessageID)
}

func TestImportFromJSONL_AutoClassifyQueuesJobs(t *testing.T) {
	repo := new(MockMessageRepo)
	jobRepo := new(MockClassifyJobRepo)
	embedder := new(MockEmbeddingClient)
	svc := NewMessagesService(repo, jobRepo, embedder, nil)

	input := `{"id": "msg-1", "subject": "A", "from": "a@example.com", "to": ["b@example.com"]}`

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetFirstN", mock.Anything, 5).Return([]*domain.Message{}, nil)

	var queued *domain.ClassifyJob
	jobRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			queued = args.Get(1).(*domain.ClassifyJob)
		}).Return(nil)

	result, err := svc.ImportFromJSONL(context.Background(), strings.NewReader(input), ImportOptions{AutoClassify: true})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	require.NotNil(t, queued)
	assert.Equal(t, "msg-1", queued.MessageID)
	assert.Equal(t, domain.ClassifyJobStatusPending, queued.Status)
}

func TestImportFromJSONL_ArchivesPayload(t *testing.T) {
	repo := new(MockMessageRepo)
	embedder := new(MockEmbeddingClient)
	archiver := new(MockArchiver)
	svc := NewMessagesService(repo, nil, embedder, archiver)

	input := `{"id": "msg-1", "subject": "A", "from": "a@example.com", "to": ["b@example.com"]}`

	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetFirstN", mock.Anything, 5).Return([]*domain.Message{}, nil)
	archiver.On("ArchiveImport", mock.Anything, "imports/run-1.jsonl", []byte(input)).Return(nil)

	_, err := svc.ImportFromJSONL(context.Background(), strings.NewReader(input), ImportOptions{
		ArchiveKey: "imports/run-1.jsonl",
	})

	require.NoError(t, err)
	archiver.AssertExpectations(t)
}

func TestMessagesService_List_InvalidCursor(t *testing.T) {
	svc := NewMessagesService(new(MockMessageRepo), nil, nil, nil)

	_, err := svc.List(context.Background(), ListInput{Cursor: "%%%not-base64%%%"})

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}
