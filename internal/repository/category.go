package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mailsift/mailsift/internal/domain"
)

type CategoryRepository struct {
	db dbtx
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: pool}
}

func NewCategoryRepositoryWithTx(tx pgx.Tx) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	var embedding *pgvector.Vector
	if c.HasEmbedding() {
		vec := pgvector.NewVector(c.Embedding)
		embedding = &vec
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (name, description, embedding)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		c.Name, c.Description, embedding,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCategoryAlreadyExists
		}
		return err
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, description, embedding FROM categories WHERE id = $1`, id)

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, name, description, embedding FROM categories WHERE name = $1`, name)

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepository) ListAll(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, embedding FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	var embedding *pgvector.Vector
	if c.HasEmbedding() {
		vec := pgvector.NewVector(c.Embedding)
		embedding = &vec
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE categories SET name = $1, description = $2, embedding = $3 WHERE id = $4`,
		c.Name, c.Description, embedding, c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCategoryAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE categories SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	var embedding *pgvector.Vector
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &embedding); err != nil {
		return nil, err
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}
