package categories

import (
	"context"
	"errors"
	"fmt"

	"gpsr/internal/infra/dbx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Store interface {
	Create(ctx context.Context, c *Category) (*Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) Store {
	return &Repository{db: db}
}

const categoryColumns = `id, owner_id, name, description, parent_id, created_at, updated_at`

func scanCategory(row pgx.Row) (*Category, error) {
	c := &Category{}
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.ParentID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) Create(ctx context.Context, c *Category) (*Category, error) {
	query := `
        INSERT INTO categories (owner_id, name, description, parent_id)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + categoryColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	category, err := scanCategory(r.db.QueryRow(ctx, query, c.OwnerID, c.Name, c.Description, c.ParentID))
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	category, err := scanCategory(r.db.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return category, nil
}

func (r *Repository) List(ctx context.Context) ([]*Category, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var list []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return list, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Category, error) {
	var u dbx.Updates
	if p.Name.Set {
		u.Set("name", p.Name.Value)
	}
	if p.Description.Set {
		u.Set("description", p.Description.Ptr())
	}
	if p.ParentID.Set {
		u.Set("parent_id", p.ParentID.Ptr())
	}
	query, args := u.Build("categories", id, categoryColumns)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	category, err := scanCategory(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return category, nil
}

// Delete removes the row. Children and products keep existing with their
// parent_id / category_id set to NULL by the foreign keys.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := r.db.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
