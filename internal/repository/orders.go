package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"perflab/internal/domain"
)

// ListOrders pages through orders. With nPlusOne set it re-queries the
// user name and item count for every row individually: the classic N+1
// access pattern, preserved on purpose as a bottleneck to observe under
// load. The single-JOIN variant exists for comparison runs.
func (r *Repository) ListOrders(ctx context.Context, page, limit int, nPlusOne bool) ([]domain.Order, error) {
	if nPlusOne {
		return r.listOrdersNPlusOne(ctx, page, limit)
	}
	return r.listOrdersJoined(ctx, page, limit)
}

func (r *Repository) listOrdersNPlusOne(ctx context.Context, page, limit int) ([]domain.Order, error) {
	defer r.observe("orders", "list_n_plus_1", time.Now())

	rows, err := r.pool.Query(ctx,
		`SELECT id, reference, user_id, status, total_cents, created_at
		 FROM orders ORDER BY id LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One extra user lookup plus one item count per row.
	for i := range orders {
		o := &orders[i]

		if err := r.pool.QueryRow(ctx,
			`SELECT name FROM users WHERE id = $1`, o.UserID,
		).Scan(&o.UserName); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to get order user: %w", err)
		}

		if err := r.pool.QueryRow(ctx,
			`SELECT count(*) FROM order_items WHERE order_id = $1`, o.ID,
		).Scan(&o.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to count order items: %w", err)
		}
	}

	return orders, nil
}

func (r *Repository) listOrdersJoined(ctx context.Context, page, limit int) ([]domain.Order, error) {
	defer r.observe("orders", "list_joined", time.Now())

	rows, err := r.pool.Query(ctx,
		`SELECT o.id, o.reference, o.user_id, u.name, o.status, o.total_cents, o.created_at,
		        count(oi.id) AS item_count
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 LEFT JOIN order_items oi ON oi.order_id = o.id
		 GROUP BY o.id, u.name
		 ORDER BY o.id LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.UserID, &o.UserName, &o.Status, &o.TotalCents, &o.CreatedAt, &o.ItemCount); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	defer r.observe("orders", "create", time.Now())

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	for _, item := range req.Items {
		var price int64
		err := tx.QueryRow(ctx,
			`SELECT price_cents FROM products WHERE id = $1`, item.ProductID,
		).Scan(&price)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to price order item: %w", err)
		}
		total += price * int64(item.Quantity)
	}

	o := domain.Order{UserID: req.UserID, Status: "created", TotalCents: total, ItemCount: len(req.Items)}
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, total_cents) VALUES ($1, $2) RETURNING id, created_at`,
		req.UserID, total,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	o.Reference, err = r.refCodes.Encode([]uint64{uint64(o.ID)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order reference: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET reference = $2 WHERE id = $1`, o.ID, o.Reference); err != nil {
		return nil, fmt.Errorf("failed to set order reference: %w", err)
	}

	for _, item := range req.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			o.ID, item.ProductID, item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return &o, nil
}
