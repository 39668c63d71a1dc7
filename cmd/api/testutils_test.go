package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"gpsr/internal/auth"
	"gpsr/internal/domain/categories"
	"gpsr/internal/domain/storage"
	"gpsr/internal/domain/users"
	"gpsr/internal/ratelimiter"
	"gpsr/internal/service"
	"gpsr/internal/visibility"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*users.User
	refresh map[uuid.UUID]string
	getErr  error
}

func (f *fakeUsers) Create(_ context.Context, u *users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return users.ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]string{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out[id] = u.DisplayName()
		}
	}
	return out, nil
}

func (f *fakeUsers) SaveRefreshToken(_ context.Context, id uuid.UUID, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh[id] = token
	return nil
}

func (f *fakeUsers) GetRefreshToken(_ context.Context, id uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh[id], nil
}

func (f *fakeUsers) DeleteRefreshToken(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.refresh, id)
	return nil
}

type fakeCategories struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*categories.Category
}

func (f *fakeCategories) Create(_ context.Context, c *categories.Category) (*categories.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeCategories) GetByID(_ context.Context, id uuid.UUID) (*categories.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, categories.ErrCategoryNotFound
	}
	out := *c
	return &out, nil
}

func (f *fakeCategories) List(context.Context) ([]*categories.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*categories.Category{}
	for _, c := range f.rows {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCategories) Update(_ context.Context, id uuid.UUID, p categories.Patch) (*categories.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return nil, categories.ErrCategoryNotFound
	}
	if p.Name.Set {
		c.Name = p.Name.Value
	}
	if p.Description.Set {
		c.Description = p.Description.Ptr()
	}
	out := *c
	return &out, nil
}

func (f *fakeCategories) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return categories.ErrCategoryNotFound
	}
	delete(f.rows, id)
	return nil
}

type testApp struct {
	app        *application
	handler    http.Handler
	users      *fakeUsers
	alice, bob uuid.UUID
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	ta := &testApp{alice: uuid.New(), bob: uuid.New()}
	ta.users = &fakeUsers{
		byID: map[uuid.UUID]*users.User{
			ta.alice: {ID: ta.alice, FirstName: "Alice", LastName: "Owner", Email: "alice@example.com"},
			ta.bob:   {ID: ta.bob, FirstName: "Bob", LastName: "Viewer", Email: "bob@example.com"},
		},
		refresh: map[uuid.UUID]string{},
	}
	require.NoError(t, ta.users.byID[ta.alice].Password.Set("correct horse"))

	store := &storage.Container{
		Users:      ta.users,
		Categories: &fakeCategories{rows: map[uuid.UUID]*categories.Category{}},
	}

	cfg := config{
		env: "test",
		auth: authConfig{
			basic: basicConfig{user: "ops", pass: "secret"},
		},
		rateLimiter: ratelimiter.Config{Enabled: false},
	}

	logger := zap.NewNop().Sugar()
	ta.app = &application{
		config:        cfg,
		store:         store,
		service:       service.New(store, visibility.Resolver{}, nil, nil, nil, logger),
		logger:        logger,
		authenticator: auth.NewJWTAuthenticator("access-secret", "refresh-secret", "gpsr", "gpsr"),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(100, time.Second),
	}
	ta.handler = ta.app.mount()
	return ta
}

func (ta *testApp) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	access, _, err := ta.app.authenticator.GenerateTokens(userID)
	require.NoError(t, err)
	return access
}

// do sends body as JSON. A zero userID sends no Authorization header.
func (ta *testApp) do(t *testing.T, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+ta.token(t, userID))
	}

	rr := httptest.NewRecorder()
	ta.handler.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e), rr.Body.String())
	return e
}
