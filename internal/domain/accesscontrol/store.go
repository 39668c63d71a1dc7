package accesscontrol

import (
	"context"
	"errors"
	"fmt"

	"gpsr/internal/infra/dbx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store is the access ledger: requests and the grants they produce.
type Store interface {
	CreateRequest(ctx context.Context, req *AccessRequest) (*AccessRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*AccessRequest, error)
	ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]*AccessRequest, error)
	ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]*AccessRequest, error)
	HasPending(ctx context.Context, requesterID uuid.UUID, rt ResourceType, resourceID uuid.UUID) (bool, error)
	// MarkDecided moves a pending request owned by ownerID to status. It
	// returns ErrRequestNotPending when the row is missing, owned by someone
	// else, or already decided, so at most one caller ever wins.
	MarkDecided(ctx context.Context, id, ownerID uuid.UUID, status Status) (*AccessRequest, error)

	CreateGrant(ctx context.Context, g *SharedAccess) (*SharedAccess, error)
	HasGrant(ctx context.Context, userID uuid.UUID, rt ResourceType, resourceID uuid.UUID) (bool, error)
	GrantedResourceIDs(ctx context.Context, userID uuid.UUID, rt ResourceType) (map[uuid.UUID]bool, error)
	ListGrantees(ctx context.Context, rt ResourceType, resourceID uuid.UUID) ([]uuid.UUID, error)

	ApprovedWithoutGrant(ctx context.Context, limit int) ([]*AccessRequest, error)
	DeleteOrphans(ctx context.Context) (int64, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) Store {
	return &Repository{db: db}
}

const requestColumns = `id, requester_id, owner_id, resource_type, resource_id, status, message, created_at, updated_at`

func scanRequest(row pgx.Row) (*AccessRequest, error) {
	req := &AccessRequest{}
	err := row.Scan(&req.ID, &req.RequesterID, &req.OwnerID, &req.ResourceType, &req.ResourceID,
		&req.Status, &req.Message, &req.CreatedAt, &req.UpdatedAt)
	return req, err
}

func collectRequests(rows pgx.Rows) ([]*AccessRequest, error) {
	defer rows.Close()

	var out []*AccessRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateRequest(ctx context.Context, req *AccessRequest) (*AccessRequest, error) {
	const q = `
		INSERT INTO access_requests (requester_id, owner_id, resource_type, resource_id, status, message)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING ` + requestColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	created, err := scanRequest(r.db.QueryRow(ctx, q,
		req.RequesterID, req.OwnerID, req.ResourceType, req.ResourceID, req.Message))
	if err != nil {
		return nil, fmt.Errorf("create access_request: %w", err)
	}
	return created, nil
}

func (r *Repository) GetRequest(ctx context.Context, id uuid.UUID) (*AccessRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	req, err := scanRequest(r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM access_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get access_request: %w", err)
	}
	return req, nil
}

func (r *Repository) ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]*AccessRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE owner_id = $1
		ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list incoming access_requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *Repository) ListOutgoing(ctx context.Context, requesterID uuid.UUID) ([]*AccessRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC, id`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing access_requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *Repository) HasPending(ctx context.Context, requesterID uuid.UUID, rt ResourceType, resourceID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM access_requests
			WHERE requester_id = $1 AND resource_type = $2 AND resource_id = $3 AND status = 'pending'
		)`, requesterID, rt, resourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has pending access_request: %w", err)
	}
	return exists, nil
}

func (r *Repository) MarkDecided(ctx context.Context, id, ownerID uuid.UUID, status Status) (*AccessRequest, error) {
	const q = `
		UPDATE access_requests
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2 AND owner_id = $3 AND status = 'pending'
		RETURNING ` + requestColumns

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	req, err := scanRequest(r.db.QueryRow(ctx, q, status, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotPending
		}
		return nil, fmt.Errorf("decide access_request: %w", err)
	}
	return req, nil
}

func (r *Repository) CreateGrant(ctx context.Context, g *SharedAccess) (*SharedAccess, error) {
	const q = `
		INSERT INTO shared_access (user_id, owner_id, resource_type, resource_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, owner_id, resource_type, resource_id, granted_at`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	out := &SharedAccess{}
	err := r.db.QueryRow(ctx, q, g.UserID, g.OwnerID, g.ResourceType, g.ResourceID).
		Scan(&out.ID, &out.UserID, &out.OwnerID, &out.ResourceType, &out.ResourceID, &out.GrantedAt)
	if err != nil {
		return nil, fmt.Errorf("create shared_access: %w", err)
	}
	return out, nil
}

func (r *Repository) HasGrant(ctx context.Context, userID uuid.UUID, rt ResourceType, resourceID uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM shared_access
			WHERE user_id = $1 AND resource_type = $2 AND resource_id = $3
		)`, userID, rt, resourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has shared_access: %w", err)
	}
	return exists, nil
}

// GrantedResourceIDs returns the set of resources of one type userID holds a
// grant for, used to resolve list visibility in one query.
func (r *Repository) GrantedResourceIDs(ctx context.Context, userID uuid.UUID, rt ResourceType) (map[uuid.UUID]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT resource_id FROM shared_access
		WHERE user_id = $1 AND resource_type = $2`, userID, rt)
	if err != nil {
		return nil, fmt.Errorf("granted resources: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (r *Repository) ListGrantees(ctx context.Context, rt ResourceType, resourceID uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT user_id FROM shared_access
		WHERE resource_type = $1 AND resource_id = $2
		GROUP BY user_id
		ORDER BY MIN(granted_at)`, rt, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list grantees: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ApprovedWithoutGrant finds approvals whose grant write never landed.
func (r *Repository) ApprovedWithoutGrant(ctx context.Context, limit int) ([]*AccessRequest, error) {
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests ar
		WHERE ar.status = 'approved'
		  AND NOT EXISTS (
			SELECT 1 FROM shared_access sa
			WHERE sa.user_id = ar.requester_id
			  AND sa.resource_type = ar.resource_type
			  AND sa.resource_id = ar.resource_id
		  )
		ORDER BY ar.updated_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("approved without grant: %w", err)
	}
	return collectRequests(rows)
}

// DeleteOrphans removes requests and grants whose resource was deleted.
func (r *Repository) DeleteOrphans(ctx context.Context) (int64, error) {
	const q = `
		WITH gone_requests AS (
			DELETE FROM access_requests ar
			WHERE (ar.resource_type = 'category' AND NOT EXISTS (SELECT 1 FROM categories c WHERE c.id = ar.resource_id))
			   OR (ar.resource_type = 'product' AND NOT EXISTS (SELECT 1 FROM products p WHERE p.id = ar.resource_id))
			RETURNING 1
		), gone_grants AS (
			DELETE FROM shared_access sa
			WHERE (sa.resource_type = 'category' AND NOT EXISTS (SELECT 1 FROM categories c WHERE c.id = sa.resource_id))
			   OR (sa.resource_type = 'product' AND NOT EXISTS (SELECT 1 FROM products p WHERE p.id = sa.resource_id))
			RETURNING 1
		)
		SELECT (SELECT COUNT(*) FROM gone_requests) + (SELECT COUNT(*) FROM gone_grants)`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int64
	if err := r.db.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("delete orphaned ledger rows: %w", err)
	}
	return n, nil
}
