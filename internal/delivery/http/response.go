package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"brokerdesk/internal/domain"
)

// Response represents a standardized API response
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// SuccessResponse sends a success response
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   data,
	})
}

// SuccessMessageResponse sends a success response with a message
func SuccessMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 Created response
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status: "success",
		Data:   data,
	})
}

// CreatedMessageResponse sends a 201 Created response with a message
func CreatedMessageResponse(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c echo.Context, statusCode int, message string, err interface{}) error {
	return c.JSON(statusCode, Response{
		Status:  "error",
		Message: message,
		Error:   err,
	})
}

// BadRequestResponse sends a 400 Bad Request response
func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

// UnauthorizedResponse sends a 401 Unauthorized response
func UnauthorizedResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

// ForbiddenResponse sends a 403 Forbidden response
func ForbiddenResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusForbidden, message, nil)
}

// NotFoundResponse sends a 404 Not Found response
func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, message, nil)
}

// ConflictResponse sends a 409 Conflict response
func ConflictResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusConflict, message, nil)
}

// InternalServerErrorResponse sends a 500 Internal Server Error response.
// The error detail is only exposed when echo runs in debug mode.
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	zap.L().Error(message,
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err),
	)

	var detail interface{}
	if err != nil && c.Echo().Debug {
		detail = err.Error()
	}
	return ErrorResponse(c, http.StatusInternalServerError, message, detail)
}

// DomainErrorResponse maps a service error onto the matching HTTP status
func DomainErrorResponse(c echo.Context, message string, err error) error {
	switch {
	case domain.IsNotFound(err):
		return NotFoundResponse(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return UnauthorizedResponse(c, "Invalid credentials")
	case errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrEmailTaken):
		return ConflictResponse(c, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidTransfer),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNotVerified),
		errors.Is(err, domain.ErrInvalidInput):
		return BadRequestResponse(c, err.Error())
	}
	return InternalServerErrorResponse(c, message, err)
}
