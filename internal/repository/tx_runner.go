package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsift/mailsift/internal/service"
)

// TxRunner runs service callbacks inside a single database transaction,
// handing them transaction-bound repositories.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	// Rollback after commit is a no-op; this also covers panics in fn.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txRepos{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Assignments() service.AssignmentRepositoryInterface {
	return NewAssignmentRepositoryWithTx(r.tx)
}
