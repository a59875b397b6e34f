package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"perflab/internal/cache"
	"perflab/internal/domain"
	"perflab/internal/repository"
)

func (h *Handler) ListOrders(c echo.Context) error {
	h.injectBottleneck(c)
	page, limit := pagination(c)

	payload, err := h.cached(c, cache.Key("orders", page, limit), func(ctx context.Context) ([]byte, error) {
		orders, err := h.repo.ListOrders(ctx, page, limit, h.nPlusOne)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.OrderListResponse{Orders: orders, Page: page, Limit: limit})
	})
	if err != nil {
		h.logger.Error("failed to list orders", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errListFailed)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) CreateOrder(c echo.Context) error {
	h.injectBottleneck(c)

	var req domain.CreateOrderRequest
	if err := c.Bind(&req); err != nil || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, errItemsRequired)
	}

	order, err := h.repo.CreateOrder(c.Request().Context(), req)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusBadRequest, errNotFound)
	}
	if err != nil {
		h.logger.Error("failed to create order", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errCreateFailed)
	}

	h.invalidate(c.Request().Context(), "orders")

	return c.JSON(http.StatusCreated, order)
}
