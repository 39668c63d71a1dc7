package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"gpsr/internal/db"
	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/products"
	"gpsr/internal/domain/suppliers"
	"gpsr/internal/domain/users"
	"gpsr/internal/nullable"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupContainer starts postgres, applies the embedded migrations and wires
// every repository to the pool.
func setupContainer(t *testing.T) *Container {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION is not set")
	}

	ctx := context.Background()

	pg, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("gpsr_test"),
		postgres.WithUsername("gpsr"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, err = db.Migrate(dsn)
	require.NoError(t, err)

	pool, err := db.New(dsn, 5, "1m")
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewContainer(pool)
}

func newUser(t *testing.T, s *Container, first, email string) *users.User {
	t.Helper()
	u := &users.User{FirstName: first, Email: email}
	require.NoError(t, u.Password.Set("password123"))
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func TestRepositories(t *testing.T) {
	s := setupContainer(t)
	ctx := context.Background()

	alice := newUser(t, s, "Alice", "Alice@Example.com")
	bob := newUser(t, s, "Bob", "bob@example.com")

	t.Run("users", func(t *testing.T) {
		err := s.Users.Create(ctx, &users.User{FirstName: "Again", Email: "alice@example.com"})
		assert.ErrorIs(t, err, users.ErrDuplicateEmail)

		got, err := s.Users.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.NoError(t, got.Password.Compare("password123"))

		names, err := s.Users.DisplayNames(ctx, []uuid.UUID{alice.ID, bob.ID, uuid.New()})
		require.NoError(t, err)
		assert.Equal(t, map[uuid.UUID]string{alice.ID: "Alice", bob.ID: "Bob"}, names)

		require.NoError(t, s.Users.SaveRefreshToken(ctx, alice.ID, "rt"))
		tok, err := s.Users.GetRefreshToken(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "rt", tok)
		require.NoError(t, s.Users.DeleteRefreshToken(ctx, alice.ID))
		tok, err = s.Users.GetRefreshToken(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("categories", func(t *testing.T) {
		desc := "root"
		parent, err := s.Categories.Create(ctx, &categories.Category{OwnerID: alice.ID, Name: "Home", Description: &desc})
		require.NoError(t, err)
		child, err := s.Categories.Create(ctx, &categories.Category{OwnerID: alice.ID, Name: "Lighting", ParentID: &parent.ID})
		require.NoError(t, err)

		updated, err := s.Categories.Update(ctx, parent.ID, categories.Patch{Description: nullable.Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, updated.Description)
		assert.Equal(t, "Home", updated.Name)

		require.NoError(t, s.Categories.Delete(ctx, parent.ID))
		got, err := s.Categories.GetByID(ctx, child.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID, "children are detached when the parent goes")

		_, err = s.Categories.GetByID(ctx, parent.ID)
		assert.ErrorIs(t, err, categories.ErrCategoryNotFound)
		assert.ErrorIs(t, s.Categories.Delete(ctx, parent.ID), categories.ErrCategoryNotFound)
	})

	t.Run("products", func(t *testing.T) {
		cat, err := s.Categories.Create(ctx, &categories.Category{OwnerID: alice.ID, Name: "Kitchen"})
		require.NoError(t, err)

		title := "Kettle"
		p, err := s.Products.Create(ctx, &products.Product{
			OwnerID:                   alice.ID,
			CategoryID:                &cat.ID,
			GPSRIdentificationDetails: &title,
			GPSRWarningPhrases:        []string{"Hot surface", "Keep away from children"},
		})
		require.NoError(t, err)
		_, err = s.Products.Create(ctx, &products.Product{OwnerID: bob.ID})
		require.NoError(t, err)

		filtered, err := s.Products.List(ctx, &cat.ID)
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, []string{"Hot surface", "Keep away from children"}, filtered[0].GPSRWarningPhrases)

		all, err := s.Products.List(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		updated, err := s.Products.Update(ctx, p.ID, products.Patch{
			GPSRStatementOfCompliance: nullable.Of(true),
			GPSRWarningPhrases:        nullable.Null[[]string](),
		})
		require.NoError(t, err)
		require.NotNil(t, updated.GPSRStatementOfCompliance)
		assert.True(t, *updated.GPSRStatementOfCompliance)
		assert.Nil(t, updated.GPSRWarningPhrases)
		assert.Equal(t, "Kettle", updated.Title())
	})

	t.Run("suppliers", func(t *testing.T) {
		sup, err := s.Suppliers.Create(ctx, &suppliers.Supplier{OwnerID: alice.ID, Name: "Acme"})
		require.NoError(t, err)

		_, err = s.Suppliers.GetByOwner(ctx, bob.ID, sup.ID)
		assert.ErrorIs(t, err, suppliers.ErrSupplierNotFound)

		mine, err := s.Suppliers.ListByOwner(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		theirs, err := s.Suppliers.ListByOwner(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, theirs)
	})

	t.Run("ledger", func(t *testing.T) {
		title := "Lamp"
		p, err := s.Products.Create(ctx, &products.Product{OwnerID: alice.ID, GPSRIdentificationDetails: &title})
		require.NoError(t, err)

		req, err := s.Ledger.CreateRequest(ctx, &accesscontrol.AccessRequest{
			RequesterID:  bob.ID,
			OwnerID:      alice.ID,
			ResourceType: accesscontrol.ResourceProduct,
			ResourceID:   p.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, accesscontrol.StatusPending, req.Status)

		pending, err := s.Ledger.HasPending(ctx, bob.ID, accesscontrol.ResourceProduct, p.ID)
		require.NoError(t, err)
		assert.True(t, pending)

		_, err = s.Ledger.MarkDecided(ctx, req.ID, bob.ID, accesscontrol.StatusApproved)
		assert.ErrorIs(t, err, accesscontrol.ErrRequestNotPending, "only the owner can decide")

		decided, err := s.Ledger.MarkDecided(ctx, req.ID, alice.ID, accesscontrol.StatusApproved)
		require.NoError(t, err)
		assert.Equal(t, accesscontrol.StatusApproved, decided.Status)

		_, err = s.Ledger.MarkDecided(ctx, req.ID, alice.ID, accesscontrol.StatusRejected)
		assert.ErrorIs(t, err, accesscontrol.ErrRequestNotPending)

		missing, err := s.Ledger.ApprovedWithoutGrant(ctx, 10)
		require.NoError(t, err)
		require.Len(t, missing, 1)

		_, err = s.Ledger.CreateGrant(ctx, accesscontrol.GrantFor(decided))
		require.NoError(t, err)

		has, err := s.Ledger.HasGrant(ctx, bob.ID, accesscontrol.ResourceProduct, p.ID)
		require.NoError(t, err)
		assert.True(t, has)

		granted, err := s.Ledger.GrantedResourceIDs(ctx, bob.ID, accesscontrol.ResourceProduct)
		require.NoError(t, err)
		assert.True(t, granted[p.ID])

		grantees, err := s.Ledger.ListGrantees(ctx, accesscontrol.ResourceProduct, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bob.ID}, grantees)

		incoming, err := s.Ledger.ListIncoming(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, incoming, 1)

		require.NoError(t, s.Products.Delete(ctx, p.ID))
		n, err := s.Ledger.DeleteOrphans(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = s.Ledger.GetRequest(ctx, req.ID)
		assert.ErrorIs(t, err, accesscontrol.ErrRequestNotFound)
	})

	t.Run("push tokens", func(t *testing.T) {
		require.NoError(t, s.PushTokens.Upsert(ctx, alice.ID, "ExponentPushToken[a]", nil))
		require.NoError(t, s.PushTokens.Upsert(ctx, alice.ID, "ExponentPushToken[a]", []byte(`{"os":"ios"}`)))

		tokens, err := s.PushTokens.TokensByUserIDs(ctx, []uuid.UUID{alice.ID, bob.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{"ExponentPushToken[a]"}, tokens[alice.ID])
		assert.Empty(t, tokens[bob.ID])

		pruned, err := s.PushTokens.PruneStale(ctx, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, pruned)
	})
}
