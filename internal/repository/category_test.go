//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/testutil"
)

func testEmbedding(lead ...float32) []float32 {
	embedding := make([]float32, 1536)
	copy(embedding, lead)
	return embedding
}

func TestCategoryRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCategoryRepository(pool)

	c := domain.NewCategory(0, "Work", "Work email")
	c.Embedding = testEmbedding(0.5)
	require.NoError(t, repo.Create(ctx, c))

	c.Name = "Finance"
	c.Description = "Invoices and receipts"
	c.Embedding = testEmbedding(0.9)
	require.NoError(t, repo.Update(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Finance", got.Name)
	assert.Equal(t, "Invoices and receipts", got.Description)
	assert.InDelta(t, 0.9, got.Embedding[0], 1e-6)

	byName, err := repo.GetByName(ctx, "Finance")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)
}

func TestCategoryRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCategoryRepository(pool)

	missing := domain.NewCategory(9999, "Ghost", "Does not exist")
	err := repo.Update(ctx, missing)

	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestCategoryRepository_Update_DuplicateName(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCategoryRepository(pool)

	a := domain.NewCategory(0, "Work", "Work email")
	require.NoError(t, repo.Create(ctx, a))
	b := domain.NewCategory(0, "Travel", "Trips")
	require.NoError(t, repo.Create(ctx, b))

	b.Name = "Work"
	err := repo.Update(ctx, b)

	assert.ErrorIs(t, err, domain.ErrCategoryAlreadyExists)
}
