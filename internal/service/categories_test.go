package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/domain"
)

// MockCategoryRepo mocks the full category repository
type MockCategoryRepo struct {
	mock.Mock
}

func (m *MockCategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryRepo) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCategoryRepo) ListAll(ctx context.Context) ([]*domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func (m *MockCategoryRepo) Update(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCategoryRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCategoryRepo) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func categoriesServiceForTest(repo *MockCategoryRepo, client *MockEmbeddingClient) *CategoriesService {
	var embeddings *EmbeddingService
	if client != nil {
		embeddings = NewEmbeddingService(client, new(MockEmbeddingMessageRepo), repo)
	}
	return NewCategoriesService(repo, embeddings)
}

func TestCategoriesService_Create_GeneratesEmbedding(t *testing.T) {
	repo := new(MockCategoryRepo)
	client := new(MockEmbeddingClient)
	svc := categoriesServiceForTest(repo, client)

	embedding := []float32{0.1, 0.2}
	client.On("GenerateEmbedding", mock.Anything, "Category: Work\nDescription: Work email").
		Return(embedding, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Category) bool {
		return c.Name == "Work" && c.HasEmbedding()
	})).Return(nil)

	category, err := svc.Create(context.Background(), CreateCategoryInput{
		Name:        "Work",
		Description: "Work email",
	})

	require.NoError(t, err)
	assert.Equal(t, embedding, category.Embedding)
	repo.AssertExpectations(t)
}

func TestCategoriesService_Update_ReembedsOnChange(t *testing.T) {
	repo := new(MockCategoryRepo)
	client := new(MockEmbeddingClient)
	svc := categoriesServiceForTest(repo, client)

	stored := domain.NewCategory(7, "Work", "Old description")
	stored.Embedding = []float32{0.9, 0.9}
	newEmbedding := []float32{0.1, 0.2}

	repo.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)
	client.On("GenerateEmbedding", mock.Anything, "Category: Work\nDescription: New description").
		Return(newEmbedding, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Category) bool {
		return c.ID == 7 && c.Description == "New description"
	})).Return(nil)

	category, err := svc.Update(context.Background(), 7, UpdateCategoryInput{
		Name:        "Work",
		Description: "New description",
	})

	require.NoError(t, err)
	assert.Equal(t, newEmbedding, category.Embedding)
	repo.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestCategoriesService_Update_UnchangedKeepsEmbedding(t *testing.T) {
	repo := new(MockCategoryRepo)
	client := new(MockEmbeddingClient)
	svc := categoriesServiceForTest(repo, client)

	stored := domain.NewCategory(7, "Work", "Same description")
	stored.Embedding = []float32{0.9, 0.9}

	repo.On("GetByID", mock.Anything, int64(7)).Return(stored, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	category, err := svc.Update(context.Background(), 7, UpdateCategoryInput{
		Name:        "Work",
		Description: "Same description",
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{0.9, 0.9}, category.Embedding)
	client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestCategoriesService_Update_NotFound(t *testing.T) {
	repo := new(MockCategoryRepo)
	svc := categoriesServiceForTest(repo, nil)

	repo.On("GetByID", mock.Anything, int64(99)).Return(nil, domain.ErrCategoryNotFound)

	_, err := svc.Update(context.Background(), 99, UpdateCategoryInput{Name: "Ghost"})

	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCategoriesService_Update_InvalidName(t *testing.T) {
	repo := new(MockCategoryRepo)
	svc := categoriesServiceForTest(repo, nil)

	repo.On("GetByID", mock.Anything, int64(7)).Return(domain.NewCategory(7, "Work", ""), nil)

	_, err := svc.Update(context.Background(), 7, UpdateCategoryInput{Name: ""})

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCategoriesService_GetByName(t *testing.T) {
	repo := new(MockCategoryRepo)
	svc := categoriesServiceForTest(repo, nil)

	repo.On("GetByName", mock.Anything, "Travel").
		Return(domain.NewCategory(3, "Travel", "Trips"), nil)

	category, err := svc.GetByName(context.Background(), "Travel")

	require.NoError(t, err)
	assert.Equal(t, int64(3), category.ID)
}
