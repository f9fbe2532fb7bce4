package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "brokerdesk/internal/middleware"
)

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	Tokens              *custommiddleware.TokenManager
	Store               Pinger
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	TransactionHandler  *TransactionHandler
	NotificationHandler *NotificationHandler
	AdminHandler        *AdminHandler
	WSHandler           *WSHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging for polling endpoints to reduce noise
			path := c.Request().URL.Path
			return path == "/health" || path == "/api/notifications/unread-count"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(MetricsMiddleware)

	// Uploads are inline base64, so allow for the encoding overhead
	e.Use(middleware.BodyLimit("4M"))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := config.Store.Ping(ctx); err != nil {
			return ErrorResponse(c, http.StatusServiceUnavailable, "Storage unavailable", nil)
		}
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "brokerdesk-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Realtime events
	e.GET("/ws", config.WSHandler.Connect)

	auth := config.Tokens.AuthMiddleware

	// API group
	api := e.Group("/api")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", config.AuthHandler.Signup)
		authGroup.POST("/login", config.AuthHandler.Login)
		authGroup.POST("/logout", config.AuthHandler.Logout)
	}

	// User routes (protected with AuthMiddleware)
	users := api.Group("/users", auth)
	{
		users.GET("/me", config.UserHandler.GetMe)
		users.PUT("/me", config.UserHandler.UpdateMe)
		users.PUT("/me/password", config.UserHandler.ChangePassword)
		users.POST("/me/avatar", config.UserHandler.UploadAvatar)
		users.POST("/me/documents", config.UserHandler.UploadDocument)
	}

	transactions := api.Group("/transactions", auth)
	{
		transactions.GET("", config.TransactionHandler.ListTransactions)
		transactions.POST("/deposit", config.TransactionHandler.RequestDeposit)
		transactions.POST("/withdrawal", config.TransactionHandler.RequestWithdrawal)
		transactions.GET("/:id", config.TransactionHandler.GetTransaction)
	}

	wallet := api.Group("/wallet", auth)
	{
		wallet.GET("", config.TransactionHandler.GetWallet)
		wallet.POST("/transfer", config.TransactionHandler.Transfer)
	}

	notifications := api.Group("/notifications", auth)
	{
		notifications.GET("", config.NotificationHandler.List)
		notifications.GET("/unread-count", config.NotificationHandler.UnreadCount)
		notifications.PUT("/read-all", config.NotificationHandler.MarkAllRead)
		notifications.PUT("/:id/read", config.NotificationHandler.MarkRead)
		notifications.DELETE("/:id", config.NotificationHandler.Delete)
		notifications.DELETE("", config.NotificationHandler.Clear)
	}

	// Admin routes (protected with Auth + Admin middleware)
	admin := api.Group("/admin", auth, custommiddleware.AdminMiddleware)
	{
		admin.GET("/users", config.AdminHandler.ListUsers)
		admin.GET("/users/:id", config.AdminHandler.GetUser)
		admin.PUT("/users/:id/verify", config.AdminHandler.VerifyUser)
		admin.PUT("/users/:id/reject", config.AdminHandler.RejectUser)
		admin.DELETE("/users/:id", config.AdminHandler.DeleteUser)
		admin.POST("/users/:id/add-funds", config.AdminHandler.AddFunds)
		admin.POST("/users/:id/email", config.AdminHandler.SendEmail)
		admin.GET("/transactions", config.AdminHandler.ListTransactions)
		admin.PUT("/transactions/:id/status", config.AdminHandler.UpdateTransactionStatus)
		admin.GET("/statistics", config.AdminHandler.GetStatistics)
	}
}
