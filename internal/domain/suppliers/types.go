package suppliers

import (
	"errors"
	"time"

	"gpsr/internal/nullable"

	"github.com/google/uuid"
)

var (
	ErrSupplierNotFound  = errors.New("supplier not found")
	QueryTimeoutDuration = time.Second * 5
)

// Supplier is private to its owner and never shared or redacted.
type Supplier struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person"`
	Email         *string   `json:"email"`
	Phone         *string   `json:"phone"`
	Address       *string   `json:"address"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Patch struct {
	Name          nullable.Field[string] `json:"name"`
	ContactPerson nullable.Field[string] `json:"contact_person"`
	Email         nullable.Field[string] `json:"email"`
	Phone         nullable.Field[string] `json:"phone"`
	Address       nullable.Field[string] `json:"address"`
	Notes         nullable.Field[string] `json:"notes"`
}
