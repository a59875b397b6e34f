package handler

import (
	"context"
	"time"

	"perflab/internal/bottleneck"
	"perflab/internal/cache"
	"perflab/internal/domain"
)

type Repository interface {
	ListUsers(ctx context.Context, page, limit int) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, name, email string) (*domain.User, error)

	ListProducts(ctx context.Context, page, limit int) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string, page, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.Product, error)

	ListOrders(ctx context.Context, page, limit int, nPlusOne bool) ([]domain.Order, error)
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
}

type DataCache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, cache.Outcome, error)
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

type Injector interface {
	Run(ctx context.Context, scenario string, p bottleneck.Params)
}
