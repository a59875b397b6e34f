package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"perflab/internal/bottleneck"
	"perflab/internal/cache"
)

const (
	cacheHeader = "X-Cache"

	defaultLimit = 20
	maxLimit     = 100
)

var (
	errInvalidBody   = map[string]string{"error": "invalid request body"}
	errInvalidID     = map[string]string{"error": "invalid id"}
	errNotFound      = map[string]string{"error": "not found"}
	errQueryRequired = map[string]string{"error": "q is required"}
	errItemsRequired = map[string]string{"error": "items is required"}
	errListFailed    = map[string]string{"error": "failed to list resources"}
	errGetFailed     = map[string]string{"error": "failed to get resource"}
	errCreateFailed  = map[string]string{"error": "failed to create resource"}
	errUpdateFailed  = map[string]string{"error": "failed to update resource"}
	respHealthOK     = map[string]string{"status": "ok"}
)

type Handler struct {
	repo      Repository
	dataCache DataCache
	injector  Injector
	logger    *slog.Logger
	ttl       time.Duration
	nPlusOne  bool
}

func New(
	repo Repository,
	dataCache DataCache,
	injector Injector,
	logger *slog.Logger,
	ttl time.Duration,
	nPlusOne bool,
) *Handler {
	return &Handler{
		repo:      repo,
		dataCache: dataCache,
		injector:  injector,
		logger:    logger,
		ttl:       ttl,
		nPlusOne:  nPlusOne,
	}
}

func (h *Handler) Register(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.GET("/health", h.Health)

	api.GET("/users", h.ListUsers)
	api.GET("/users/:id", h.GetUser)
	api.POST("/users", h.CreateUser)

	api.GET("/products", h.ListProducts)
	api.GET("/products/search", h.SearchProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products", h.CreateProduct)
	api.PUT("/products/:id", h.UpdateProduct)

	api.GET("/orders", h.ListOrders)
	api.POST("/orders", h.CreateOrder)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, respHealthOK)
}

// injectBottleneck runs the scenario named in the request, if any, before
// the operation proper. Unknown names are a harmless no-op inside the
// injector, so a typo in a load script never fails the request.
func (h *Handler) injectBottleneck(c echo.Context) {
	scenario := c.QueryParam("bottleneck")
	if scenario == "" {
		return
	}

	var p bottleneck.Params
	if ms, err := strconv.Atoi(c.QueryParam("bottleneck_ms")); err == nil && ms > 0 {
		p.Duration = time.Duration(ms) * time.Millisecond
	}
	if mb, err := strconv.Atoi(c.QueryParam("bottleneck_mb")); err == nil && mb > 0 {
		p.SizeMB = mb
	}

	h.injector.Run(c.Request().Context(), scenario, p)
}

// cached runs the cache-aside read path. When the store is unreachable the
// handler fails open: the value is computed directly and served uncached,
// reported as a bypass. Compute errors pass through unchanged.
func (h *Handler) cached(c echo.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	ctx := c.Request().Context()

	payload, outcome, err := h.dataCache.GetOrCompute(ctx, key, h.ttl, compute)
	if errors.Is(err, cache.ErrStoreUnavailable) {
		h.logger.Warn("cache store unavailable, computing directly",
			slog.String("key", key),
			slog.String("error", err.Error()))
		payload, err = compute(ctx)
		outcome = cache.OutcomeBypass
	}
	if err != nil {
		return nil, err
	}

	c.Response().Header().Set(cacheHeader, string(outcome))
	return payload, nil
}

// invalidate coarsely evicts every cached query for a resource kind after
// a write. An unreachable store only costs freshness here, not the write.
func (h *Handler) invalidate(ctx context.Context, kind string) {
	if _, err := h.dataCache.InvalidatePrefix(ctx, cache.Prefix(kind)); err != nil {
		h.logger.Warn("failed to invalidate cache",
			slog.String("kind", kind),
			slog.String("error", err.Error()))
	}
}

func pagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
