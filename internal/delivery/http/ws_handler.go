package http

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"brokerdesk/internal/adapter/realtime"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/middleware"
)

// WSHandler upgrades authenticated clients onto the realtime hub
type WSHandler struct {
	hub    *realtime.Hub
	tokens *middleware.TokenManager
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *realtime.Hub, tokens *middleware.TokenManager) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens}
}

// Connect authenticates by token query param, bearer header or cookie and joins the user's rooms
// GET /ws?token=<jwt>
func (h *WSHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		if cookie, err := c.Cookie("token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return UnauthorizedResponse(c, "Missing authentication token")
	}

	claims, err := h.tokens.Parse(token)
	if err != nil {
		return UnauthorizedResponse(c, "Invalid or expired token")
	}

	if err := h.hub.Serve(c.Response(), c.Request(), claims.UserID, claims.Role == domain.RoleAdmin); err != nil {
		// The upgrader has already written the HTTP error
		zap.L().Debug("Websocket upgrade failed", zap.Error(err))
	}
	return nil
}
