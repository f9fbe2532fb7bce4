package http

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"brokerdesk/internal/delivery/http/dto"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionHandler handles transaction and wallet requests of the authenticated user
type TransactionHandler struct {
	ledger *service.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// pagination reads limit and offset query params
func pagination(c echo.Context) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// transactionFilter reads the type and status query params
func transactionFilter(c echo.Context) (domain.TransactionFilter, error) {
	limit, offset := pagination(c)
	filter := domain.TransactionFilter{Limit: limit, Offset: offset}

	if v := c.QueryParam("type"); v != "" {
		t, err := domain.ParseTransactionType(v)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	if v := c.QueryParam("status"); v != "" {
		s, err := domain.ParseTransactionStatus(v)
		if err != nil {
			return filter, err
		}
		filter.Status = s
	}
	return filter, nil
}

// ListTransactions returns the user's transactions, newest first
// GET /api/transactions
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	filter, err := transactionFilter(c)
	if err != nil {
		return BadRequestResponse(c, err.Error())
	}
	filter.UserID = &userID

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

// GetTransaction returns one of the user's transactions
// GET /api/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid transaction ID")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.ledger.GetTransaction(ctx, userID, id)
	if err != nil {
		return DomainErrorResponse(c, "Failed to get transaction", err)
	}

	return SuccessResponse(c, dto.NewTransactionOutput(tx))
}

// RequestDeposit records a pending deposit
// POST /api/transactions/deposit
func (h *TransactionHandler) RequestDeposit(c echo.Context) error {
	return h.request(c, h.ledger.RequestDeposit, "Deposit request submitted")
}

// RequestWithdrawal records a pending withdrawal
// POST /api/transactions/withdrawal
func (h *TransactionHandler) RequestWithdrawal(c echo.Context) error {
	return h.request(c, h.ledger.RequestWithdrawal, "Withdrawal request submitted")
}

type requestFunc func(ctx context.Context, userID uuid.UUID, req service.TransactionRequest) (*domain.Transaction, error)

func (h *TransactionHandler) request(c echo.Context, submit requestFunc, message string) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.TransactionRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := submit(ctx, userID, service.TransactionRequest{
		Amount:      req.Amount,
		Method:      req.Method,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		return DomainErrorResponse(c, "Failed to submit request", err)
	}

	return CreatedMessageResponse(c, message, dto.NewTransactionOutput(tx))
}

// GetWallet returns the user's balance summary
// GET /api/wallet
func (h *TransactionHandler) GetWallet(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	wallet, err := h.ledger.Wallet(ctx, userID)
	if err != nil {
		return DomainErrorResponse(c, "Failed to get wallet", err)
	}

	return SuccessResponse(c, wallet)
}

// Transfer moves funds between the wallet and the trading account
// POST /api/wallet/transfer
func (h *TransactionHandler) Transfer(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "User not authenticated")
	}

	var req dto.TransferRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, user, err := h.ledger.TransferInternal(ctx, userID, req.From, req.To, req.Amount)
	if err != nil {
		return DomainErrorResponse(c, "Failed to transfer funds", err)
	}

	return SuccessMessageResponse(c, "Transfer completed", dto.TransferResponse{
		Transaction:    dto.NewTransactionOutput(tx),
		Balance:        user.Balance.StringFixed(2),
		TradingBalance: user.TradingBalance.StringFixed(2),
	})
}
