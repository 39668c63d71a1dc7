package categories

import (
	"errors"
	"time"

	"gpsr/internal/nullable"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	QueryTimeoutDuration = time.Second * 5
)

type Category struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Patch carries a partial update; unset fields are left alone.
type Patch struct {
	Name        nullable.Field[string]    `json:"name"`
	Description nullable.Field[string]    `json:"description"`
	ParentID    nullable.Field[uuid.UUID] `json:"parent_id"`
}
