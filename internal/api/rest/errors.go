package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(message))
}

// respondUnauthorized responds when a route that needs a caller has none
func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError("Authentication required"))
}

// respondInternalError responds with an internal server error and logs the cause
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, fields...)
	c.JSON(http.StatusInternalServerError, apierrors.NewInternalError(message))
}

// respondMarketplaceError maps a marketplace error onto an HTTP status by its kind
func respondMarketplaceError(c *gin.Context, err error, message string, fields ...zap.Field) {
	details := err.Error()

	switch domain.KindOf(err) {
	case domain.ErrorKindLookup:
		c.JSON(http.StatusNotFound, apierrors.NewNotFoundError(message, details))
	case domain.ErrorKindAuthorization:
		c.JSON(http.StatusForbidden, apierrors.NewForbiddenError(message, details))
	case domain.ErrorKindState:
		c.JSON(http.StatusConflict, apierrors.NewConflictError(message, details))
	case domain.ErrorKindValidation:
		c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(details))
	case domain.ErrorKindTransfer:
		if errors.Is(err, domain.ErrInsufficientFunds) {
			c.JSON(http.StatusPaymentRequired, apierrors.NewPaymentRequiredError(message, details))
			return
		}
		c.JSON(http.StatusConflict, apierrors.NewConflictError(message, details))
	default:
		respondInternalError(c, err, message, fields...)
		return
	}

	logger.WarnCtx(c.Request.Context(), message, append(fields, zap.Error(err))...)
}
