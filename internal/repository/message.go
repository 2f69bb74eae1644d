package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mailsift/mailsift/internal/domain"
	"github.com/mailsift/mailsift/internal/pagination"
	"github.com/mailsift/mailsift/internal/service"
)

type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

func NewMessageRepositoryWithTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{db: tx}
}

const messageColumns = `id, subject, sender, recipients, snippet, body, date, embedding, created_at`

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var embedding *pgvector.Vector
	if m.HasEmbedding() {
		vec := pgvector.NewVector(m.Embedding)
		embedding = &vec
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, subject, sender, recipients, snippet, body, date, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.Subject, m.Sender, m.To, nullableString(m.Snippet), nullableString(m.Body), m.Date, embedding, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrMessageAlreadyExists
		}
		return err
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)

	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.MessagePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+messageColumns+`
			 FROM messages
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+messageColumns+`
			 FROM messages
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanMessageRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	nextCursor := ""
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.MessagePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *MessageRepository) GetFirstN(ctx context.Context, n int) ([]*domain.Message, error) {
	if n <= 0 {
		n = 5
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM messages
		 ORDER BY created_at ASC, id ASC
		 LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

func (r *MessageRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM messages ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	var snippet, body *string
	var embedding *pgvector.Vector
	if err := row.Scan(&m.ID, &m.Subject, &m.Sender, &m.To, &snippet, &body, &m.Date, &embedding, &m.CreatedAt); err != nil {
		return nil, err
	}
	if snippet != nil {
		m.Snippet = *snippet
	}
	if body != nil {
		m.Body = *body
	}
	if embedding != nil {
		m.Embedding = embedding.Slice()
	}
	return &m, nil
}

func scanMessageRows(rows pgx.Rows) ([]*domain.Message, error) {
	var results []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
