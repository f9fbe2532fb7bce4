package http

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"brokerdesk/internal/middleware"
	"brokerdesk/internal/service"
)

// NotificationHandler serves the authenticated user's notifications
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the user's notifications, newest first
// GET /api/notifications
func (h *NotificationHandler) List(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.notifications.List(ctx, userID, limit)
	if err != nil {
		return DomainErrorResponse(c, "Failed to list notifications", err)
	}

	return SuccessResponse(c, list)
}

// UnreadCount returns how many notifications are unread
// GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	count, err := h.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, "Failed to count notifications", err)
	}

	return SuccessResponse(c, map[string]int{"count": count})
}

// MarkRead marks one notification read
// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid notification ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.notifications.MarkRead(ctx, id, userID); err != nil {
		return DomainErrorResponse(c, "Failed to mark notification read", err)
	}

	return SuccessMessageResponse(c, "Notification marked as read", nil)
}

// MarkAllRead marks every notification read
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	updated, err := h.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, "Failed to mark notifications read", err)
	}

	return SuccessResponse(c, map[string]int64{"updated": updated})
}

// Delete removes one notification
// DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid notification ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.notifications.Delete(ctx, id, userID); err != nil {
		return DomainErrorResponse(c, "Failed to delete notification", err)
	}

	return SuccessMessageResponse(c, "Notification deleted", nil)
}

// Clear removes every notification
// DELETE /api/notifications
func (h *NotificationHandler) Clear(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.notifications.Clear(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, "Failed to clear notifications", err)
	}

	return SuccessResponse(c, map[string]int64{"deleted": deleted})
}
