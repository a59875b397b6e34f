package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perflab/internal/bottleneck"
	"perflab/internal/cache"
	"perflab/internal/domain"
	"perflab/internal/handler"
	"perflab/internal/metrics"
	"perflab/internal/repository"
)

// fakeRepo serves canned data and counts queries so tests can assert how
// often the cache let a request through to the database.
type fakeRepo struct {
	listUserCalls    atomic.Int64
	listOrderCalls   atomic.Int64
	listProductCalls atomic.Int64
	users            []domain.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users: []domain.User{
			{ID: 1, Name: "alice", Email: "alice@perflab.test"},
			{ID: 2, Name: "bob", Email: "bob@perflab.test"},
		},
	}
}

func (f *fakeRepo) ListUsers(_ context.Context, page, limit int) ([]domain.User, error) {
	f.listUserCalls.Add(1)
	return f.users, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			return &f.users[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) CreateUser(_ context.Context, name, email string) (*domain.User, error) {
	u := domain.User{ID: int64(len(f.users) + 1), Name: name, Email: email, CreatedAt: time.Now()}
	f.users = append(f.users, u)
	return &u, nil
}

func (f *fakeRepo) ListProducts(context.Context, int, int) ([]domain.Product, error) {
	f.listProductCalls.Add(1)
	return []domain.Product{{ID: 1, Name: "widget", PriceCents: 100}}, nil
}

func (f *fakeRepo) SearchProducts(context.Context, string, int, int) ([]domain.Product, error) {
	return nil, nil
}

func (f *fakeRepo) GetProduct(context.Context, int64) (*domain.Product, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) CreateProduct(_ context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	return &domain.Product{ID: 9, Name: req.Name, PriceCents: req.PriceCents}, nil
}

func (f *fakeRepo) UpdateProduct(context.Context, int64, domain.UpdateProductRequest) (*domain.Product, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeRepo) ListOrders(context.Context, int, int, bool) ([]domain.Order, error) {
	f.listOrderCalls.Add(1)
	return []domain.Order{{ID: 1, UserID: 1, Status: "created"}}, nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	return &domain.Order{ID: 2, UserID: req.UserID, Status: "created", ItemCount: len(req.Items)}, nil
}

type env struct {
	e         *echo.Echo
	repo      *fakeRepo
	collector *metrics.Collector
}

func newEnv(t *testing.T, store cache.Store) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	collector := metrics.NewCollector()

	if store == nil {
		ms := cache.NewMemoryStore(0)
		t.Cleanup(func() { ms.Close() })
		store = ms
	}

	inj := bottleneck.New(collector, logger, nil, 16)
	t.Cleanup(inj.Close)

	repo := newFakeRepo()
	h := handler.New(repo, cache.New(store, collector, logger), inj, logger, time.Minute, true)

	e := echo.New()
	h.Register(e)
	return &env{e: e, repo: repo, collector: collector}
}

func (env *env) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *env) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func TestListUsers_MissThenHit(t *testing.T) {
	env := newEnv(t, nil)

	first := env.get("/api/v1/users?page=1&limit=10")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "miss", first.Header().Get("X-Cache"))

	second := env.get("/api/v1/users?page=1&limit=10")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int64(1), env.repo.listUserCalls.Load(), "second request must be served from cache")
}

func TestListUsers_DistinctParamsDistinctKeys(t *testing.T) {
	env := newEnv(t, nil)

	env.get("/api/v1/users?page=1&limit=10")
	rec := env.get("/api/v1/users?page=2&limit=10")

	assert.Equal(t, "miss", rec.Header().Get("X-Cache"))
	assert.Equal(t, int64(2), env.repo.listUserCalls.Load())
}

func TestCreateUser_InvalidatesListCache(t *testing.T) {
	env := newEnv(t, nil)

	env.get("/api/v1/users?page=1&limit=10")
	require.Equal(t, int64(1), env.repo.listUserCalls.Load())

	rec := env.post("/api/v1/users", `{"name":"carol","email":"carol@perflab.test"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	after := env.get("/api/v1/users?page=1&limit=10")
	assert.Equal(t, "miss", after.Header().Get("X-Cache"))
	assert.Equal(t, int64(2), env.repo.listUserCalls.Load())
}

func TestCreateUser_LeavesOtherResourcesCached(t *testing.T) {
	env := newEnv(t, nil)

	env.get("/api/v1/orders?page=1&limit=10")
	env.post("/api/v1/users", `{"name":"carol","email":"carol@perflab.test"}`)

	rec := env.get("/api/v1/orders?page=1&limit=10")
	assert.Equal(t, "hit", rec.Header().Get("X-Cache"))
	assert.Equal(t, int64(1), env.repo.listOrderCalls.Load())
}

func TestGetUser_NotFound(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.get("/api/v1/users/999")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUser_Found(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.get("/api/v1/users/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var u domain.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "alice", u.Name)
}

func TestListUsers_StoreUnavailableFailsOpen(t *testing.T) {
	env := newEnv(t, downStore{})

	for i := 0; i < 2; i++ {
		rec := env.get("/api/v1/users?page=1&limit=10")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bypass", rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, int64(2), env.repo.listUserCalls.Load(), "every request computes when the store is down")

	snap, err := env.collector.Snapshot()
	require.NoError(t, err)
	assert.Contains(t, snap, metrics.CacheRequestsTotal+`{outcome="bypass",resource="users"} 2`,
		"bypassed lookups must stay visible in the cache metrics")
}

func TestBottleneckParam_UnknownScenario(t *testing.T) {
	env := newEnv(t, nil)

	start := time.Now()
	rec := env.get("/api/v1/users?bottleneck=nonexistent&bottleneck_ms=5000")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, time.Since(start), time.Second, "unknown scenario must not delay the request")
}

func TestBottleneckParam_LatencyInject(t *testing.T) {
	env := newEnv(t, nil)

	start := time.Now()
	rec := env.get("/api/v1/users?bottleneck=latency-inject&bottleneck_ms=100")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestSearchProducts_RequiresQuery(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.get("/api/v1/products/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_RequiresItems(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.post("/api/v1/orders", `{"user_id":1,"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_Success(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.post("/api/v1/orders", `{"user_id":1,"items":[{"product_id":1,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var o domain.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	assert.Equal(t, 1, o.ItemCount)
}

func TestHealth(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.get("/api/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// downStore simulates an unreachable cache backend.
type downStore struct{}

func (downStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, fmt.Errorf("get: %w", cache.ErrStoreUnavailable)
}

func (downStore) Set(context.Context, string, []byte, time.Duration) error {
	return fmt.Errorf("set: %w", cache.ErrStoreUnavailable)
}

func (downStore) DeletePrefix(context.Context, string) (int, error) {
	return 0, fmt.Errorf("delete: %w", cache.ErrStoreUnavailable)
}

func (downStore) Close() error { return nil }
