package service

import "context"

// TxRepositories exposes the repositories that participate in an
// assignment-replacing transaction.
type TxRepositories interface {
	Assignments() AssignmentRepositoryInterface
}

// TxRunner runs fn atomically: either every repository write inside fn
// commits, or none do.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
