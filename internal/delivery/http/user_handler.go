package http

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"brokerdesk/internal/delivery/http/dto"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/service"
)

// UserHandler handles profile requests of the authenticated user
type UserHandler struct {
	accounts *service.AccountService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *service.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// GetMe returns current user details
// GET /api/users/me
func (h *UserHandler) GetMe(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.accounts.Profile(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, "Failed to get user details", err)
	}

	return SuccessResponse(c, dto.NewUserOutput(user))
}

// UpdateMe updates the editable profile fields
// PUT /api/users/me
func (h *UserHandler) UpdateMe(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.accounts.UpdateProfile(ctx, userID, service.ProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		Country:     req.Country,
		Address:     req.Address,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		return DomainErrorResponse(c, "Failed to update profile", err)
	}

	return SuccessMessageResponse(c, "Profile updated", dto.NewUserOutput(user))
}

// ChangePassword replaces the user's password
// PUT /api/users/me/password
func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return BadRequestResponse(c, "Current and new password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.accounts.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return DomainErrorResponse(c, "Failed to change password", err)
	}

	return SuccessMessageResponse(c, "Password changed", nil)
}

// UploadAvatar stores the profile picture
// POST /api/users/me/avatar
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.UploadRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.accounts.UploadAvatar(ctx, userID, req.Data); err != nil {
		return DomainErrorResponse(c, "Failed to upload avatar", err)
	}

	return SuccessMessageResponse(c, "Avatar updated", nil)
}

// UploadDocument stores the identity document for verification
// POST /api/users/me/documents
func (h *UserHandler) UploadDocument(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.UploadRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.accounts.UploadDocument(ctx, userID, req.Data)
	if err != nil {
		return DomainErrorResponse(c, "Failed to upload document", err)
	}

	return SuccessMessageResponse(c, "Document submitted for review", dto.NewUserOutput(user))
}
