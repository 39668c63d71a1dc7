package accesscontrol

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRequestNotFound   = errors.New("access request not found")
	ErrRequestNotPending = errors.New("access request is not pending")
	QueryTimeoutDuration = time.Second * 5
)

type ResourceType string

const (
	ResourceCategory ResourceType = "category"
	ResourceProduct  ResourceType = "product"
)

func (t ResourceType) Valid() bool {
	return t == ResourceCategory || t == ResourceProduct
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AccessRequest asks the owner of a category or product for shared access.
// pending -> approved | rejected; both outcomes are final.
type AccessRequest struct {
	ID           uuid.UUID    `json:"id"`
	RequesterID  uuid.UUID    `json:"requester_id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   uuid.UUID    `json:"resource_id"`
	Status       Status       `json:"status"`
	Message      *string      `json:"message"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SharedAccess is the grant written when a request is approved. Grants are
// append-only.
type SharedAccess struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	OwnerID      uuid.UUID    `json:"owner_id"`
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   uuid.UUID    `json:"resource_id"`
	GrantedAt    time.Time    `json:"granted_at"`
}

// GrantFor builds the grant an approved request should produce.
func GrantFor(req *AccessRequest) *SharedAccess {
	return &SharedAccess{
		UserID:       req.RequesterID,
		OwnerID:      req.OwnerID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
	}
}
