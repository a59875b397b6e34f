package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"perflab/internal/domain"
)

func (r *Repository) ListProducts(ctx context.Context, page, limit int) ([]domain.Product, error) {
	defer r.observe("products", "list", time.Now())

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, price_cents, created_at
		 FROM products ORDER BY id LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows, limit)
}

func (r *Repository) SearchProducts(ctx context.Context, query string, page, limit int) ([]domain.Product, error) {
	defer r.observe("products", "search", time.Now())

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, price_cents, created_at
		 FROM products
		 WHERE name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		 ORDER BY id LIMIT $2 OFFSET $3`,
		query, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows, limit)
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	defer r.observe("products", "get", time.Now())

	var p domain.Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, price_cents, created_at FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	defer r.observe("products", "create", time.Now())

	p := domain.Product{Name: req.Name, Description: req.Description, PriceCents: req.PriceCents}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price_cents) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		req.Name, req.Description, req.PriceCents,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func (r *Repository) UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.Product, error) {
	defer r.observe("products", "update", time.Now())

	var p domain.Product
	err := r.pool.QueryRow(ctx,
		`UPDATE products SET name = $2, description = $3, price_cents = $4
		 WHERE id = $1
		 RETURNING id, name, description, price_cents, created_at`,
		id, req.Name, req.Description, req.PriceCents,
	).Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows, capacity int) ([]domain.Product, error) {
	products := make([]domain.Product, 0, capacity)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
