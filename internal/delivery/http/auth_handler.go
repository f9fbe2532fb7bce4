package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"brokerdesk/internal/delivery/http/dto"
	"brokerdesk/internal/service"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts     *service.AccountService
	tokenTTL     time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *service.AccountService, tokenTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		accounts:     accounts,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
	}
}

// Signup handles user registration
// POST /api/auth/signup
func (h *AuthHandler) Signup(c echo.Context) error {
	var req dto.SignupRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	if req.Email == "" || req.Password == "" {
		return BadRequestResponse(c, "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, token, err := h.accounts.Signup(ctx, service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Country:   req.Country,
	})
	if err != nil {
		return DomainErrorResponse(c, "Failed to create user", err)
	}

	h.setTokenCookie(c, token)
	return CreatedResponse(c, dto.LoginResponse{
		Token: token,
		User:  dto.NewUserOutput(user),
	})
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	// Validate input
	if req.Email == "" || req.Password == "" {
		return BadRequestResponse(c, "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, token, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return DomainErrorResponse(c, "Failed to log in", err)
	}

	h.setTokenCookie(c, token)
	return SuccessResponse(c, dto.LoginResponse{
		Token: token,
		User:  dto.NewUserOutput(user),
	})
}

// Logout handles user logout
// POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	// Clear the cookie
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	return SuccessMessageResponse(c, "Logged out", nil)
}

func (h *AuthHandler) setTokenCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})
}
