package storage

import (
	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/products"
	"gpsr/internal/domain/pushtokens"
	"gpsr/internal/domain/suppliers"
	"gpsr/internal/domain/users"
	"gpsr/internal/infra/dbx"
)

type Container struct {
	Users      users.Store
	Categories categories.Store
	Products   products.Store
	Suppliers  suppliers.Store
	Ledger     accesscontrol.Store
	PushTokens pushtokens.Store
}

// NewContainer wires every repository to the same pool (or transaction).
func NewContainer(db dbx.Querier) *Container {
	return &Container{
		Users:      users.NewRepository(db),
		Categories: categories.NewRepository(db),
		Products:   products.NewRepository(db),
		Suppliers:  suppliers.NewRepository(db),
		Ledger:     accesscontrol.NewRepository(db),
		PushTokens: pushtokens.NewRepository(db),
	}
}
