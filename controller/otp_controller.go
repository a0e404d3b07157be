package controller

import (
	"net/http"

	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/service"
	"loan-auth/validator"

	"github.com/labstack/echo/v4"
)

// OTPController handles OTP-related HTTP requests
type OTPController struct {
	otpService service.OTPService
	validator  *validator.Validator
	logger     *logger.Logger
}

// NewOTPController creates a new OTP controller instance
func NewOTPController(otpService service.OTPService, validator *validator.Validator, logger *logger.Logger) *OTPController {
	return &OTPController{
		otpService: otpService,
		validator:  validator,
		logger:     logger,
	}
}

// SendOTP handles OTP issuance and delivery
// @Summary Send OTP
// @Description Issue a one-time code for the given subject and purpose and deliver it by email (phone delivery is stubbed)
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.SendOTPRequest true "Send OTP Request"
// @Success 200 {object} entity.SendOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /otp/send [post]
func (c *OTPController) SendOTP(ctx echo.Context) error {
	var req entity.SendOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request format"})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	}

	response, err := c.otpService.SendOTP(&req)
	if err != nil {
		c.logger.Warnw("Failed to send OTP", "email", req.Email, "phone", req.Phone, "purpose", req.Purpose, "error", err)
		return respondError(ctx, c.logger, err)
	}

	c.logger.Infow("OTP sent", "email", req.Email, "phone", req.Phone, "purpose", req.Purpose)
	return ctx.JSON(http.StatusOK, response)
}

// VerifyOTP handles OTP verification
// @Summary Verify OTP
// @Description Verify a one-time code; account verifications return a session token, application verifications echo the subject
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.VerifyOTPRequest true "Verify OTP Request"
// @Success 200 {object} entity.VerifyOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /otp/verify [post]
func (c *OTPController) VerifyOTP(ctx echo.Context) error {
	var req entity.VerifyOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request format"})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	}

	response, err := c.otpService.VerifyOTP(&req)
	if err != nil {
		c.logger.Warnw("OTP verification failed", "email", req.Email, "phone", req.Phone, "purpose", req.Purpose, "error", err)
		return respondError(ctx, c.logger, err)
	}

	return ctx.JSON(http.StatusOK, response)
}
