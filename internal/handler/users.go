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

func (h *Handler) ListUsers(c echo.Context) error {
	h.injectBottleneck(c)
	page, limit := pagination(c)

	payload, err := h.cached(c, cache.Key("users", page, limit), func(ctx context.Context) ([]byte, error) {
		users, err := h.repo.ListUsers(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.UserListResponse{Users: users, Page: page, Limit: limit})
	})
	if err != nil {
		h.logger.Error("failed to list users", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errListFailed)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) GetUser(c echo.Context) error {
	h.injectBottleneck(c)

	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errInvalidID)
	}

	payload, err := h.cached(c, cache.Key("users", "id", id), func(ctx context.Context) ([]byte, error) {
		user, err := h.repo.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		return json.Marshal(user)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errNotFound)
	}
	if err != nil {
		h.logger.Error("failed to get user", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errGetFailed)
	}

	return c.JSONBlob(http.StatusOK, payload)
}

func (h *Handler) CreateUser(c echo.Context) error {
	h.injectBottleneck(c)

	var req domain.CreateUserRequest
	if err := c.Bind(&req); err != nil || req.Name == "" || req.Email == "" {
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}

	user, err := h.repo.CreateUser(c.Request().Context(), req.Name, req.Email)
	if err != nil {
		h.logger.Error("failed to create user", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errCreateFailed)
	}

	h.invalidate(c.Request().Context(), "users")

	return c.JSON(http.StatusCreated, user)
}
