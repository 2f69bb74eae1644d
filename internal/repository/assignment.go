package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mailsift/mailsift/internal/domain"
)

// AssignmentRepository handles persistence of message-category assignments.
type AssignmentRepository struct {
	db dbtx
}

func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{db: pool}
}

func NewAssignmentRepositoryWithTx(tx pgx.Tx) *AssignmentRepository {
	return &AssignmentRepository{db: tx}
}

// ReplaceForMessage deletes the message's existing assignments and inserts
// the new set. Run inside a transaction so readers never observe a partial
// or mixed set.
func (r *AssignmentRepository) ReplaceForMessage(ctx context.Context, messageID string, assignments []*domain.Assignment) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM message_categories WHERE message_id = $1`, messageID)
	if err != nil {
		return err
	}

	if len(assignments) == 0 {
		return nil
	}

	for _, a := range assignments {
		classifiedAt := a.ClassifiedAt
		if classifiedAt.IsZero() {
			classifiedAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO message_categories (message_id, category_id, score, explanation, classified_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			a.MessageID, a.CategoryID, a.Score, a.Explanation, classifiedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListForMessage returns the message's assignments, highest score first.
func (r *AssignmentRepository) ListForMessage(ctx context.Context, messageID string) ([]*domain.Assignment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT message_id, category_id, score, explanation, classified_at
		 FROM message_categories
		 WHERE message_id = $1
		 ORDER BY score DESC, category_id ASC`,
		messageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignmentRows(rows)
}

// ListForCategory returns the assignments pointing at a category, highest
// score first.
func (r *AssignmentRepository) ListForCategory(ctx context.Context, categoryID int64) ([]*domain.Assignment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT message_id, category_id, score, explanation, classified_at
		 FROM message_categories
		 WHERE category_id = $1
		 ORDER BY score DESC, message_id ASC`,
		categoryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignmentRows(rows)
}

// CountForMessage returns the number of assignments for a message.
func (r *AssignmentRepository) CountForMessage(ctx context.Context, messageID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM message_categories WHERE message_id = $1`, messageID).Scan(&count)
	return count, err
}

func scanAssignmentRows(rows pgx.Rows) ([]*domain.Assignment, error) {
	var results []*domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.MessageID, &a.CategoryID, &a.Score, &a.Explanation, &a.ClassifiedAt); err != nil {
			return nil, err
		}
		results = append(results, &a)
	}
	return results, rows.Err()
}
