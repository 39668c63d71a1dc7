package suppliers

import (
	"context"
	"errors"
	"fmt"

	"gpsr/internal/infra/dbx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store exposes suppliers. Every read is scoped to one owner; GetByID is the
// only unscoped lookup and exists so the caller can tell "absent" from "not
// yours" before a mutation.
type Store interface {
	Create(ctx context.Context, s *Supplier) (*Supplier, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*Supplier, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Supplier, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Supplier, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) Store {
	return &Repository{db: db}
}

const supplierColumns = `id, owner_id, name, contact_person, email, phone, address, notes, created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	s := &Supplier{}
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.ContactPerson, &s.Email,
		&s.Phone, &s.Address, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *Repository) Create(ctx context.Context, s *Supplier) (*Supplier, error) {
	query := `
		INSERT INTO suppliers (owner_id, name, contact_person, email, phone, address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + supplierColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	created, err := scanSupplier(r.db.QueryRow(ctx, query,
		s.OwnerID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address, s.Notes))
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	return r.getOne(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id)
}

func (r *Repository) GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*Supplier, error) {
	return r.getOne(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1 AND owner_id = $2`, id, ownerID)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (*Supplier, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	s, err := scanSupplier(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return s, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Supplier, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE owner_id = $1 ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var list []*Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return list, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Patch) (*Supplier, error) {
	var u dbx.Updates
	if p.Name.Set {
		u.Set("name", p.Name.Value)
	}
	if p.ContactPerson.Set {
		u.Set("contact_person", p.ContactPerson.Ptr())
	}
	if p.Email.Set {
		u.Set("email", p.Email.Ptr())
	}
	if p.Phone.Set {
		u.Set("phone", p.Phone.Ptr())
	}
	if p.Address.Set {
		u.Set("address", p.Address.Ptr())
	}
	if p.Notes.Set {
		u.Set("notes", p.Notes.Ptr())
	}
	query, args := u.Build("suppliers", id, supplierColumns)

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	s, err := scanSupplier(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("update supplier: %w", err)
	}
	return s, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := r.db.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}
