package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"gpsr/internal/domain/accesscontrol"
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/products"
	"gpsr/internal/domain/storage"
	"gpsr/internal/domain/suppliers"
	"gpsr/internal/domain/users"
	"gpsr/internal/notifications"
	"gpsr/internal/visibility"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// clock hands out strictly increasing timestamps so ordering is stable.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now.IsZero() {
		c.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	c.now = c.now.Add(time.Second)
	return c.now
}

type memUsers struct {
	users.Store
	mu   sync.Mutex
	byID map[uuid.UUID]*users.User
	err  error
}

func (m *memUsers) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out[id] = u.DisplayName()
		}
	}
	return out, nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

type memCategories struct {
	mu    sync.Mutex
	clock *clock
	rows  map[uuid.UUID]*categories.Category
}

func (m *memCategories) Create(_ context.Context, c *categories.Category) (*categories.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt = m.clock.tick()
	cp.UpdatedAt = cp.CreatedAt
	m.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memCategories) GetByID(_ context.Context, id uuid.UUID) (*categories.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, categories.ErrCategoryNotFound
	}
	out := *c
	return &out, nil
}

func (m *memCategories) List(context.Context) ([]*categories.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*categories.Category
	for _, c := range m.rows {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memCategories) Update(_ context.Context, id uuid.UUID, p categories.Patch) (*categories.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, categories.ErrCategoryNotFound
	}
	if p.Name.Set {
		c.Name = p.Name.Value
	}
	if p.Description.Set {
		c.Description = p.Description.Ptr()
	}
	if p.ParentID.Set {
		c.ParentID = p.ParentID.Ptr()
	}
	c.UpdatedAt = m.clock.tick()
	out := *c
	return &out, nil
}

func (m *memCategories) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return categories.ErrCategoryNotFound
	}
	delete(m.rows, id)
	for _, c := range m.rows {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	return nil
}

type memProducts struct {
	mu    sync.Mutex
	clock *clock
	rows  map[uuid.UUID]*products.Product
}

func (m *memProducts) Create(_ context.Context, p *products.Product) (*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt = m.clock.tick()
	cp.UpdatedAt = cp.CreatedAt
	m.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memProducts) GetByID(_ context.Context, id uuid.UUID) (*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, products.ErrProductNotFound
	}
	out := *p
	return &out, nil
}

func (m *memProducts) List(_ context.Context, categoryID *uuid.UUID) ([]*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*products.Product
	for _, p := range m.rows {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memProducts) Update(_ context.Context, id uuid.UUID, patch products.Patch) (*products.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, products.ErrProductNotFound
	}
	if patch.CategoryID.Set {
		p.CategoryID = patch.CategoryID.Ptr()
	}
	if patch.GPSRIdentificationDetails.Set {
		p.GPSRIdentificationDetails = patch.GPSRIdentificationDetails.Ptr()
	}
	if patch.GPSRWarningText.Set {
		p.GPSRWarningText = patch.GPSRWarningText.Ptr()
	}
	p.UpdatedAt = m.clock.tick()
	out := *p
	return &out, nil
}

func (m *memProducts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return products.ErrProductNotFound
	}
	delete(m.rows, id)
	return nil
}

type memSuppliers struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*suppliers.Supplier
}

func (m *memSuppliers) Create(_ context.Context, s *suppliers.Supplier) (*suppliers.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.ID = uuid.New()
	m.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memSuppliers) GetByID(_ context.Context, id uuid.UUID) (*suppliers.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, suppliers.ErrSupplierNotFound
	}
	out := *s
	return &out, nil
}

func (m *memSuppliers) GetByOwner(ctx context.Context, ownerID, id uuid.UUID) (*suppliers.Supplier, error) {
	s, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.OwnerID != ownerID {
		return nil, suppliers.ErrSupplierNotFound
	}
	return s, nil
}

func (m *memSuppliers) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*suppliers.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*suppliers.Supplier
	for _, s := range m.rows {
		if s.OwnerID == ownerID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSuppliers) Update(_ context.Context, id uuid.UUID, p suppliers.Patch) (*suppliers.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, suppliers.ErrSupplierNotFound
	}
	if p.Name.Set {
		s.Name = p.Name.Value
	}
	if p.Phone.Set {
		s.Phone = p.Phone.Ptr()
	}
	out := *s
	return &out, nil
}

func (m *memSuppliers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return suppliers.ErrSupplierNotFound
	}
	delete(m.rows, id)
	return nil
}

// memLedger mirrors the SQL repository, including the conditional update.
type memLedger struct {
	mu       sync.Mutex
	clock    *clock
	requests map[uuid.UUID]*accesscontrol.AccessRequest
	grants   []*accesscontrol.SharedAccess
	grantErr error
	cats     *memCategories
	prods    *memProducts
}

func (m *memLedger) CreateRequest(_ context.Context, req *accesscontrol.AccessRequest) (*accesscontrol.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	cp.ID = uuid.New()
	cp.Status = accesscontrol.StatusPending
	cp.CreatedAt = m.clock.tick()
	cp.UpdatedAt = cp.CreatedAt
	m.requests[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memLedger) GetRequest(_ context.Context, id uuid.UUID) (*accesscontrol.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, accesscontrol.ErrRequestNotFound
	}
	out := *r
	return &out, nil
}

func (m *memLedger) list(match func(*accesscontrol.AccessRequest) bool) []*accesscontrol.AccessRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*accesscontrol.AccessRequest
	for _, r := range m.requests {
		if match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memLedger) ListIncoming(_ context.Context, ownerID uuid.UUID) ([]*accesscontrol.AccessRequest, error) {
	return m.list(func(r *accesscontrol.AccessRequest) bool { return r.OwnerID == ownerID }), nil
}

func (m *memLedger) ListOutgoing(_ context.Context, requesterID uuid.UUID) ([]*accesscontrol.AccessRequest, error) {
	return m.list(func(r *accesscontrol.AccessRequest) bool { return r.RequesterID == requesterID }), nil
}

func (m *memLedger) HasPending(_ context.Context, requesterID uuid.UUID, rt accesscontrol.ResourceType, id uuid.UUID) (bool, error) {
	return len(m.list(func(r *accesscontrol.AccessRequest) bool {
		return r.RequesterID == requesterID && r.ResourceType == rt && r.ResourceID == id && r.Status == accesscontrol.StatusPending
	})) > 0, nil
}

func (m *memLedger) MarkDecided(_ context.Context, id, ownerID uuid.UUID, status accesscontrol.Status) (*accesscontrol.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.OwnerID != ownerID || r.Status != accesscontrol.StatusPending {
		return nil, accesscontrol.ErrRequestNotPending
	}
	r.Status = status
	r.UpdatedAt = m.clock.tick()
	out := *r
	return &out, nil
}

func (m *memLedger) CreateGrant(_ context.Context, g *accesscontrol.SharedAccess) (*accesscontrol.SharedAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantErr != nil {
		return nil, m.grantErr
	}
	cp := *g
	cp.ID = uuid.New()
	cp.GrantedAt = m.clock.tick()
	m.grants = append(m.grants, &cp)
	out := cp
	return &out, nil
}

func (m *memLedger) hasGrantLocked(userID uuid.UUID, rt accesscontrol.ResourceType, id uuid.UUID) bool {
	for _, g := range m.grants {
		if g.UserID == userID && g.ResourceType == rt && g.ResourceID == id {
			return true
		}
	}
	return false
}

func (m *memLedger) HasGrant(_ context.Context, userID uuid.UUID, rt accesscontrol.ResourceType, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasGrantLocked(userID, rt, id), nil
}

func (m *memLedger) GrantedResourceIDs(_ context.Context, userID uuid.UUID, rt accesscontrol.ResourceType) (map[uuid.UUID]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID]bool{}
	for _, g := range m.grants {
		if g.UserID == userID && g.ResourceType == rt {
			out[g.ResourceID] = true
		}
	}
	return out, nil
}

func (m *memLedger) ListGrantees(_ context.Context, rt accesscontrol.ResourceType, id uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, g := range m.grants {
		if g.ResourceType == rt && g.ResourceID == id && !seen[g.UserID] {
			seen[g.UserID] = true
			out = append(out, g.UserID)
		}
	}
	return out, nil
}

func (m *memLedger) ApprovedWithoutGrant(_ context.Context, limit int) ([]*accesscontrol.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*accesscontrol.AccessRequest
	for _, r := range m.requests {
		if r.Status == accesscontrol.StatusApproved && !m.hasGrantLocked(r.RequesterID, r.ResourceType, r.ResourceID) {
			cp := *r
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memLedger) exists(rt accesscontrol.ResourceType, id uuid.UUID) bool {
	if rt == accesscontrol.ResourceCategory {
		_, err := m.cats.GetByID(context.Background(), id)
		return err == nil
	}
	_, err := m.prods.GetByID(context.Background(), id)
	return err == nil
}

func (m *memLedger) DeleteOrphans(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.requests {
		if !m.exists(r.ResourceType, r.ResourceID) {
			delete(m.requests, id)
			n++
		}
	}
	kept := m.grants[:0]
	for _, g := range m.grants {
		if m.exists(g.ResourceType, g.ResourceID) {
			kept = append(kept, g)
		} else {
			n++
		}
	}
	m.grants = kept
	return n, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	requested []notifications.AccessEvent
	decided   []notifications.AccessEvent
	err       error
}

func (r *recordingNotifier) AccessRequested(_ context.Context, ev notifications.AccessEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requested = append(r.requested, ev)
	return r.err
}

func (r *recordingNotifier) AccessDecided(_ context.Context, ev notifications.AccessEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decided = append(r.decided, ev)
	return r.err
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *memBlobs) Upload(_ context.Context, path string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b
	return "https://files.example.com/" + path, nil
}

func (m *memBlobs) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return errors.New("no such object")
	}
	delete(m.objects, path)
	return nil
}

type harness struct {
	svc      *Service
	users    *memUsers
	cats     *memCategories
	prods    *memProducts
	sups     *memSuppliers
	ledger   *memLedger
	notifier *recordingNotifier
	blobs    *memBlobs

	alice, bob, carol uuid.UUID
}

func newHarness(resolver visibility.Resolver) *harness {
	clk := &clock{}
	h := &harness{
		alice: uuid.New(),
		bob:   uuid.New(),
		carol: uuid.New(),
	}
	h.users = &memUsers{byID: map[uuid.UUID]*users.User{
		h.alice: {ID: h.alice, FirstName: "Alice", LastName: "Owner"},
		h.bob:   {ID: h.bob, FirstName: "Bob", LastName: "Viewer"},
		h.carol: {ID: h.carol, FirstName: "Carol"},
	}}
	h.cats = &memCategories{clock: clk, rows: map[uuid.UUID]*categories.Category{}}
	h.prods = &memProducts{clock: clk, rows: map[uuid.UUID]*products.Product{}}
	h.sups = &memSuppliers{rows: map[uuid.UUID]*suppliers.Supplier{}}
	h.ledger = &memLedger{
		clock:    clk,
		requests: map[uuid.UUID]*accesscontrol.AccessRequest{},
		cats:     h.cats,
		prods:    h.prods,
	}
	h.notifier = &recordingNotifier{}
	h.blobs = &memBlobs{objects: map[string][]byte{}}

	store := &storage.Container{
		Users:      h.users,
		Categories: h.cats,
		Products:   h.prods,
		Suppliers:  h.sups,
		Ledger:     h.ledger,
	}
	h.svc = New(store, resolver, NewNameCache(h.users, 64, time.Minute), h.notifier, h.blobs, zap.NewNop().Sugar())
	return h
}
