package controller

import (
	"errors"
	"net/http"

	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/pkg/mailer"

	"github.com/labstack/echo/v4"
)

// errorResponse is the failure envelope shared by all endpoints
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError maps application errors onto HTTP statuses at the handler
// boundary. Unexpected failures are logged in full and surface as a generic
// message, so internal detail never leaks to the caller.
func respondError(ctx echo.Context, log *logger.Logger, err error) error {
	var vErr *entity.ValidationError
	if errors.As(err, &vErr) {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: vErr.Message})
	}

	var nfErr *entity.NotFoundError
	if errors.As(err, &nfErr) {
		return ctx.JSON(http.StatusNotFound, errorResponse{Message: nfErr.Error()})
	}

	var otpErr *entity.OTPError
	if errors.As(err, &otpErr) {
		return ctx.JSON(http.StatusBadRequest, errorResponse{
			Message: otpErr.Error(),
			Code:    string(otpErr.Reason),
		})
	}

	var dErr *mailer.DeliveryError
	if errors.As(err, &dErr) {
		if dErr.Kind == mailer.KindInvalidAddress {
			return ctx.JSON(http.StatusBadRequest, errorResponse{
				Message: dErr.Hint,
				Code:    string(dErr.Kind),
			})
		}
		return ctx.JSON(http.StatusInternalServerError, errorResponse{
			Message: "Failed to deliver email: " + dErr.Hint,
			Code:    string(dErr.Kind),
		})
	}

	log.Errorw("Unhandled error", "path", ctx.Request().URL.Path, "error", err)
	return ctx.JSON(http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
}
