// Package visibility decides which fields of a shared resource a caller may
// read. Owners see everything. Everyone else gets the public projection: id,
// title, parent/category link, timestamps and owner identity. All other keys
// stay in the payload as null.
package visibility

import (
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/products"

	"github.com/google/uuid"
)

type CategoryView struct {
	categories.Category
	OwnerName string `json:"owner_name"`
	Redacted  bool   `json:"redacted"`
}

type ProductView struct {
	products.Product
	OwnerName string `json:"owner_name"`
	Redacted  bool   `json:"redacted"`
}

// Resolver is stateless. With GrantAware unset, a SharedAccess grant never
// upgrades the payload; the grant only answers has-access queries.
type Resolver struct {
	GrantAware bool
}

// FullAccess reports whether caller may read every field of a row owned by
// owner. granted is whether caller holds a grant for that row.
func (r Resolver) FullAccess(caller, owner uuid.UUID, granted bool) bool {
	if caller == uuid.Nil {
		return false
	}
	if caller == owner {
		return true
	}
	return r.GrantAware && granted
}

func (r Resolver) Category(caller uuid.UUID, c *categories.Category, ownerName string, granted bool) *CategoryView {
	if r.FullAccess(caller, c.OwnerID, granted) {
		return &CategoryView{Category: *c, OwnerName: ownerName}
	}
	return &CategoryView{
		Category: categories.Category{
			ID:        c.ID,
			OwnerID:   c.OwnerID,
			Name:      c.Name,
			ParentID:  c.ParentID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		OwnerName: ownerName,
		Redacted:  true,
	}
}

func (r Resolver) Product(caller uuid.UUID, p *products.Product, ownerName string, granted bool) *ProductView {
	if r.FullAccess(caller, p.OwnerID, granted) {
		return &ProductView{Product: *p, OwnerName: ownerName}
	}
	return &ProductView{
		Product: products.Product{
			ID:                        p.ID,
			OwnerID:                   p.OwnerID,
			CategoryID:                p.CategoryID,
			GPSRIdentificationDetails: p.GPSRIdentificationDetails,
			CreatedAt:                 p.CreatedAt,
			UpdatedAt:                 p.UpdatedAt,
		},
		OwnerName: ownerName,
		Redacted:  true,
	}
}
