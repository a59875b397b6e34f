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

func (h *Handler) ListProducts(c echo.Context) error {
	h.injectBottleneck(c)
	page, limit := pagination(c)

	payload, err := h.cached(c, cache.Key("products", page, limit), func(ctx context.Context) ([]byte, error) {
		products, err := h.repo.ListProducts(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.ProductListResponse{Products: products, Page: page, Limit: limit})
	})
	if err != nil {
		h.logger.Error("failed to list products", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errListFailed)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) SearchProducts(c echo.Context) error {
	h.injectBottleneck(c)

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, errQueryRequired)
	}
	page, limit := pagination(c)

	payload, err := h.cached(c, cache.Key("products", "search", query, page, limit), func(ctx context.Context) ([]byte, error) {
		products, err := h.repo.SearchProducts(ctx, query, page, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.ProductListResponse{Products: products, Page: page, Limit: limit, Query: query})
	})
	if err != nil {
		h.logger.Error("failed to search products", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errListFailed)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) GetProduct(c echo.Context) error {
	h.injectBottleneck(c)

	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errInvalidID)
	}

	payload, err := h.cached(c, cache.Key("products", "id", id), func(ctx context.Context) ([]byte, error) {
		product, err := h.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(product)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errNotFound)
	}
	if err != nil {
		h.logger.Error("failed to get product", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errGetFailed)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) CreateProduct(c echo.Context) error {
	h.injectBottleneck(c)

	var req domain.CreateProductRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}

	product, err := h.repo.CreateProduct(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("failed to create product", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errCreateFailed)
	}

	h.invalidate(c.Request().Context(), "products")

	return c.JSON(http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	h.injectBottleneck(c)

	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errInvalidID)
	}

	var req domain.UpdateProductRequest
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}

	product, err := h.repo.UpdateProduct(c.Request().Context(), id, req)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errNotFound)
	}
	if err != nil {
		h.logger.Error("failed to update product", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errUpdateFailed)
	}

	h.invalidate(c.Request().Context(), "products")

	return c.JSON(http.StatusOK, product)
}
