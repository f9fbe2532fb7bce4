package http

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"brokerdesk/internal/delivery/http/dto"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/service"
)

// AdminHandler handles admin console requests
type AdminHandler struct {
	accounts *service.AccountService
	ledger   *service.LedgerService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(accounts *service.AccountService, ledger *service.LedgerService) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		ledger:   ledger,
	}
}

func pathUUID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

// ListUsers returns users filtered by status and search term
// GET /api/admin/users
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, offset := pagination(c)
	filter := domain.UserFilter{
		Status: c.QueryParam("status"),
		Search: strings.TrimSpace(c.QueryParam("search")),
		Limit:  limit,
		Offset: offset,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.accounts.ListUsers(ctx, filter)
	if err != nil {
		return DomainErrorResponse(c, "Failed to list users", err)
	}

	out := make([]*dto.UserOutput, 0, len(users))
	for _, u := range users {
		out = append(out, dto.NewUserOutput(u))
	}

	return SuccessResponse(c, dto.UserListOutput{
		Users:  out,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetUser returns a user with their document and transactions
// GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid user ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, txs, err := h.accounts.UserDetail(ctx, id)
	if err != nil {
		return DomainErrorResponse(c, "Failed to get user", err)
	}

	return SuccessResponse(c, dto.AdminUserOutput{
		UserOutput:   *dto.NewUserOutput(user),
		KYCDocument:  user.KYCDocument,
		Transactions: dto.NewTransactionOutputs(txs),
	})
}

// VerifyUser approves a user's verification
// PUT /api/admin/users/:id/verify
func (h *AdminHandler) VerifyUser(c echo.Context) error {
	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid user ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.accounts.Verify(ctx, id)
	if err != nil {
		return DomainErrorResponse(c, "Failed to verify user", err)
	}

	return SuccessMessageResponse(c, "User verified", dto.NewUserOutput(user))
}

// RejectUser declines a user's verification
// PUT /api/admin/users/:id/reject
func (h *AdminHandler) RejectUser(c echo.Context) error {
	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid user ID")
	}

	var req dto.RejectUserRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.accounts.Reject(ctx, id, req.Reason)
	if err != nil {
		return DomainErrorResponse(c, "Failed to reject user", err)
	}

	return SuccessMessageResponse(c, "User rejected", dto.NewUserOutput(user))
}

// DeleteUser removes a user and everything they own
// DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actorID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid user ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.accounts.DeleteUser(ctx, actorID, id); err != nil {
		return DomainErrorResponse(c, "Failed to delete user", err)
	}

	return SuccessMessageResponse(c, "User deleted", nil)
}

// AddFunds credits a verified user's balance directly
// POST /api/admin/users/:id/add-funds
func (h *AdminHandler) AddFunds(c echo.Context) error {
	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid user ID")
	}

	var req dto.AddFundsRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, user, err := h.ledger.AddFunds(ctx, id, req.Amount, req.Note)
	if err != nil {
		return DomainErrorResponse(c, "Failed to add funds", err)
	}

	return SuccessMessageResponse(c, "Funds added", dto.AddFundsResponse{
		Transaction: dto.NewTransactionOutput(tx),
		User:        dto.NewUserOutput(user),
	})
}

// SendEmail emails a user
// POST /api/admin/users/:id/email
func (h *AdminHandler) SendEmail(c echo.Context) error {
	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid user ID")
	}

	var req dto.SendEmailRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	// SMTP relays can be slow
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	if err := h.accounts.SendEmail(ctx, id, req.Subject, req.Message); err != nil {
		return DomainErrorResponse(c, "Failed to send email", err)
	}

	return SuccessMessageResponse(c, "Email sent", nil)
}

// ListTransactions returns every user's transactions
// GET /api/admin/transactions
func (h *AdminHandler) ListTransactions(c echo.Context) error {
	filter, err := transactionFilter(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return BadRequestResponse(c, "Invalid user ID")
		}
		filter.UserID = &id
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	txs, total, err := h.ledger.ListTransactions(ctx, filter)
	if err != nil {
		return DomainErrorResponse(c, "Failed to list transactions", err)
	}

	return SuccessResponse(c, dto.TransactionListOutput{
		Transactions: dto.NewTransactionOutputs(txs),
		Total:        total,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// UpdateTransactionStatus approves, rejects or advances a transaction
// PUT /api/admin/transactions/:id/status
func (h *AdminHandler) UpdateTransactionStatus(c echo.Context) error {
	id, ok := pathUUID(c, "id")
	if !ok {
		return BadRequestResponse(c, "Invalid transaction ID")
	}

	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.ledger.UpdateTransactionStatus(ctx, id, req.Status, req.AdminNotes)
	if err != nil {
		return DomainErrorResponse(c, "Failed to update transaction", err)
	}

	return SuccessMessageResponse(c, "Transaction updated", dto.NewTransactionOutput(tx))
}

// GetStatistics returns dashboard statistics
// GET /api/admin/statistics
func (h *AdminHandler) GetStatistics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.ledger.Statistics(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to get statistics", err)
	}

	return SuccessResponse(c, stats)
}
