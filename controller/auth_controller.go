package controller

import (
	"net/http"
	"strings"

	"loan-auth/entity"
	"loan-auth/pkg/logger"
	"loan-auth/service"

	"github.com/labstack/echo/v4"
)

// AuthController handles session-related operations
type AuthController struct {
	jwtService  service.JWTService
	userService service.UserService
	logger      *logger.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(jwtService service.JWTService, userService service.UserService, logger *logger.Logger) *AuthController {
	return &AuthController{
		jwtService:  jwtService,
		userService: userService,
		logger:      logger,
	}
}

// Me returns the authenticated user's profile
// @Summary Current user
// @Description Return the profile of the authenticated user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entity.UserResponse
// @Failure 401 {object} map[string]interface{}
// @Router /auth/me [get]
func (c *AuthController) Me(ctx echo.Context) error {
	user, ok := ctx.Get("user").(*entity.User)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
	}

	profile, err := c.userService.GetByID(user.ID)
	if err != nil {
		return respondError(ctx, c.logger, err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    profile,
	})
}

// Logout revokes the caller's session token
// @Summary Logout user
// @Description Revoke the session token, optionally across all devices
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.LogoutRequest false "Logout options"
// @Security BearerAuth
// @Success 200 {object} entity.MessageResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx echo.Context) error {
	authHeader := ctx.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ctx.JSON(http.StatusUnauthorized, errorResponse{Message: "Missing or malformed Authorization header"})
	}
	tokenString := authHeader[7:]

	var req entity.LogoutRequest
	if err := ctx.Bind(&req); err != nil {
		// The body is optional.
		req = entity.LogoutRequest{}
	}

	token, err := c.jwtService.ValidateToken(tokenString)
	if err != nil {
		c.logger.Warnw("Failed to validate token for logout", "error", err)
		return ctx.JSON(http.StatusUnauthorized, errorResponse{Message: "Invalid token"})
	}

	user, err := c.jwtService.GetUserFromToken(token)
	if err != nil {
		return respondError(ctx, c.logger, err)
	}

	if req.LogoutAll {
		if err := c.jwtService.RevokeAllUserTokens(user.ID); err != nil {
			c.logger.Errorw("Failed to revoke all user tokens", "user_id", user.ID, "error", err)
			return respondError(ctx, c.logger, err)
		}
		c.logger.Infow("User logged out from all devices", "user_id", user.ID)
		return ctx.JSON(http.StatusOK, entity.MessageResponse{Success: true, Message: "Successfully logged out from all devices"})
	}

	if err := c.jwtService.RevokeToken(tokenString); err != nil {
		c.logger.Errorw("Failed to revoke token", "user_id", user.ID, "error", err)
		return respondError(ctx, c.logger, err)
	}

	c.logger.Infow("User logged out", "user_id", user.ID)
	return ctx.JSON(http.StatusOK, entity.MessageResponse{Success: true, Message: "Successfully logged out"})
}
