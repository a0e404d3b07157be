package controller

import (
	"net/http"

	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/service"
	"loan-auth/validator"

	"github.com/labstack/echo/v4"
)

// AccountController handles credential-recovery HTTP requests
type AccountController struct {
	accountService service.AccountService
	validator      *validator.Validator
	logger         *logger.Logger
}

// NewAccountController creates a new account controller instance
func NewAccountController(accountService service.AccountService, validator *validator.Validator, logger *logger.Logger) *AccountController {
	return &AccountController{
		accountService: accountService,
		validator:      validator,
		logger:         logger,
	}
}

// ForgotPassword starts the password-reset flow
// @Summary Forgot password
// @Description Issue a password-reset code and deliver it to the account's email
// @Tags Account
// @Accept json
// @Produce json
// @Param request body entity.ForgotPasswordRequest true "Forgot Password Request"
// @Success 200 {object} entity.MessageResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/forgot-password [post]
func (c *AccountController) ForgotPassword(ctx echo.Context) error {
	var req entity.ForgotPasswordRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request format"})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	}

	response, err := c.accountService.ForgotPassword(req.Email)
	if err != nil {
		c.logger.Warnw("Forgot password failed", "email", req.Email, "error", err)
		return respondError(ctx, c.logger, err)
	}

	return ctx.JSON(http.StatusOK, response)
}

// ResetPassword completes the password-reset flow
// @Summary Reset password
// @Description Consume a password-reset code and replace the account credential
// @Tags Account
// @Accept json
// @Produce json
// @Param request body entity.ResetPasswordRequest true "Reset Password Request"
// @Success 200 {object} entity.MessageResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/reset-password [post]
func (c *AccountController) ResetPassword(ctx echo.Context) error {
	var req entity.ResetPasswordRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request format"})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	}

	response, err := c.accountService.ResetPassword(&req)
	if err != nil {
		c.logger.Warnw("Reset password failed", "email", req.Email, "error", err)
		return respondError(ctx, c.logger, err)
	}

	return ctx.JSON(http.StatusOK, response)
}
