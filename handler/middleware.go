package handler

import (
	"net/http"
	"strings"
	"time"

	"loan-auth/pkg/logger"
	"loan-auth/service"

	"github.com/labstack/echo/v4"
)

// publicPath reports whether a request path is served without authentication
func publicPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/otp/") ||
		path == "/api/v1/auth/forgot-password" ||
		path == "/api/v1/auth/reset-password" ||
		strings.HasPrefix(path, "/swagger") ||
		path == "/" ||
		path == "/health"
}

// JWTMiddleware creates a JWT authentication middleware
func JWTMiddleware(jwtService service.JWTService, logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if publicPath(path) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				logger.Warnw("Missing Authorization header", "path", path)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Missing Authorization header",
				})
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				logger.Warnw("Invalid Authorization header format", "path", path)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Invalid Authorization header format",
				})
			}

			tokenString := authHeader[7:]

			token, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				logger.Warnw("Invalid JWT token", "path", path, "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Invalid or expired token",
				})
			}

			user, err := jwtService.GetUserFromToken(token)
			if err != nil {
				logger.Errorw("Failed to extract user from token", "path", path, "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Invalid token claims",
				})
			}

			c.Set("user", user)
			return next(c)
		}
	}
}

// CORSMiddleware creates a CORS middleware
func CORSMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("Access-Control-Allow-Origin", "*")
			c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}

// RequestLoggerMiddleware creates a request logging middleware
func RequestLoggerMiddleware(logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			logger.Infow("HTTP request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"remote_addr", c.RealIP(),
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return err
		}
	}
}
