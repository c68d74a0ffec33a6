package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/inventory-sync/internal/inventory"
	"github.com/iyhunko/inventory-sync/internal/repository"
	"github.com/iyhunko/inventory-sync/internal/service"
	"github.com/iyhunko/inventory-sync/internal/webhook"
)

// errInvalidBody is reported for request bodies that cannot be bound.
var errInvalidBody = errors.New("invalid request body")

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	var fetchErr *inventory.FetchError
	switch {
	case inventory.IsValidationError(err),
		errors.Is(err, service.ErrNothingToApply),
		errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrInvalidChat),
		errors.Is(err, repository.ErrInvalidPaginationToken),
		errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, inventory.ErrNotPubliclyAccessible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrStoreNotFound),
		errors.Is(err, repository.ErrNoStoreToBackup),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAuditDisabled),
		errors.Is(err, webhook.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &fetchErr),
		errors.Is(err, service.ErrWebhookFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the failure envelope for err. Field-level validation
// problems are listed under details.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}

	var fieldErrs inventory.ValidationErrors
	if errors.As(err, &fieldErrs) {
		body["error"] = "validation failed"
		body["details"] = []inventory.FieldError(fieldErrs)
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("method", c.Request.Method),
			slog.Int("status", status),
			slog.Any("err", err))
	}
	c.JSON(status, body)
}
