package handler

import (
	"loan-auth/config"
	"loan-auth/controller"
	"loan-auth/pkg/logger"
	"loan-auth/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes registers all HTTP routes and middleware
func RegisterRoutes(
	e *echo.Echo,
	otpController *controller.OTPController,
	accountController *controller.AccountController,
	authController *controller.AuthController,
	healthController *controller.HealthController,
	jwtService service.JWTService,
	cfg *config.Config,
	logger *logger.Logger,
) {
	e.Use(middleware.Recover())
	e.Use(CORSMiddleware())
	e.Use(RequestLoggerMiddleware(logger))
	e.Use(JWTMiddleware(jwtService, logger))

	// System endpoints
	e.GET("/health", healthController.HealthCheck)
	e.GET("/", healthController.ServiceInfo)

	// Swagger documentation
	if cfg.Swagger.Enabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	v1 := e.Group("/api/v1")

	// OTP routes (public)
	otpGroup := v1.Group("/otp")
	otpGroup.POST("/send", otpController.SendOTP)
	otpGroup.POST("/verify", otpController.VerifyOTP)

	// Credential recovery (public)
	authGroup := v1.Group("/auth")
	authGroup.POST("/forgot-password", accountController.ForgotPassword)
	authGroup.POST("/reset-password", accountController.ResetPassword)

	// Session routes (protected)
	authGroup.POST("/logout", authController.Logout)
	authGroup.GET("/me", authController.Me)
}
