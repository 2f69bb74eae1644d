//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/service"
	"github.com/mailsift/mailsift/internal/testutil"
)

func seedMessageAndCategories(ctx context.Context, t *testing.T, msgRepo *MessageRepository, catRepo *CategoryRepository) (string, []int64) {
	t.Helper()

	require.NoError(t, msgRepo.Create(ctx, testMessage("msg-1")))

	var ids []int64
	for _, name := range []string{"Work", "Personal", "Updates"} {
		c := domain.NewCategory(0, name, name+" description")
		require.NoError(t, catRepo.Create(ctx, c))
		ids = append(ids, c.ID)
	}
	return "msg-1", ids
}

func TestAssignmentRepository_ReplaceForMessage(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	msgRepo := NewMessageRepository(pool)
	catRepo := NewCategoryRepository(pool)
	repo := NewAssignmentRepository(pool)

	messageID, catIDs := seedMessageAndCategories(ctx, t, msgRepo, catRepo)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := []*domain.Assignment{
		domain.NewAssignment(messageID, catIDs[0], 0.9, "first run", now),
		domain.NewAssignment(messageID, catIDs[1], 0.7, "first run", now),
	}
	require.NoError(t, repo.ReplaceForMessage(ctx, messageID, first))

	got, err := repo.ListForMessage(ctx, messageID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, catIDs[0], got[0].CategoryID)
	assert.Equal(t, 0.9, got[0].Score)

	// Replacing must not append: only the new set survives.
	second := []*domain.Assignment{
		domain.NewAssignment(messageID, catIDs[2], 0.8, "second run", now),
	}
	require.NoError(t, repo.ReplaceForMessage(ctx, messageID, second))

	got, err = repo.ListForMessage(ctx, messageID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, catIDs[2], got[0].CategoryID)
	assert.Equal(t, "second run", got[0].Explanation)

	count, err := repo.CountForMessage(ctx, messageID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAssignmentRepository_ReplaceWithEmptySetClears(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	msgRepo := NewMessageRepository(pool)
	catRepo := NewCategoryRepository(pool)
	repo := NewAssignmentRepository(pool)

	messageID, catIDs := seedMessageAndCategories(ctx, t, msgRepo, catRepo)
	now := time.Now().UTC()

	require.NoError(t, repo.ReplaceForMessage(ctx, messageID, []*domain.Assignment{
		domain.NewAssignment(messageID, catIDs[0], 0.9, "run", now),
	}))
	require.NoError(t, repo.ReplaceForMessage(ctx, messageID, nil))

	got, err := repo.ListForMessage(ctx, messageID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	msgRepo := NewMessageRepository(pool)
	catRepo := NewCategoryRepository(pool)
	repo := NewAssignmentRepository(pool)
	runner := NewTxRunner(pool)

	messageID, catIDs := seedMessageAndCategories(ctx, t, msgRepo, catRepo)
	now := time.Now().UTC()

	require.NoError(t, repo.ReplaceForMessage(ctx, messageID, []*domain.Assignment{
		domain.NewAssignment(messageID, catIDs[0], 0.9, "existing", now),
	}))

	// The delete inside the transaction must be rolled back when the
	// callback fails, leaving the prior set intact.
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		if err := repos.Assignments().ReplaceForMessage(ctx, messageID, nil); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	got, err := repo.ListForMessage(ctx, messageID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "existing", got[0].Explanation)
}

func TestCategoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCategoryRepository(pool)

	c := domain.NewCategory(0, "Work", "Work-related messages")
	require.NoError(t, repo.Create(ctx, c))
	assert.NotZero(t, c.ID)

	dup := domain.NewCategory(0, "Work", "duplicate name")
	require.ErrorIs(t, repo.Create(ctx, dup), domain.ErrCategoryAlreadyExists)

	got, err := repo.GetByName(ctx, "Work")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	embedding := make([]float32, 1536)
	embedding[3] = 0.5
	require.NoError(t, repo.UpdateEmbedding(ctx, c.ID, embedding))

	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.HasEmbedding())

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.GetByID(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestClassifyJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	msgRepo := NewMessageRepository(pool)
	repo := NewClassifyJobRepository(pool)

	require.NoError(t, msgRepo.Create(ctx, testMessage("msg-1")))

	job := domain.NewClassifyJob("job-1", "msg-1", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, job))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "job-1", claimed[0].ID)
	assert.Equal(t, domain.ClassifyJobStatusProcessing, claimed[0].Status)

	// Claimed jobs are no longer pending.
	claimed, err = repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	require.NoError(t, repo.IncrementRetries(ctx, "job-1"))
	require.NoError(t, repo.UpdateStatus(ctx, "job-1", domain.ClassifyJobStatusCompleted, ""))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyJobStatusCompleted, got.Status)
	assert.Equal(t, int32(1), got.Retries)
	assert.NotNil(t, got.ProcessedAt)
}
