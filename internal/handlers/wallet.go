package handlers

import (
	"ledgerly/internal/middleware"
	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/ledger"
	"ledgerly/internal/services/wallet"
	"ledgerly/internal/utils/pagination"
	"ledgerly/internal/utils/response"
	"ledgerly/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	ledger  *ledger.Service
	wallets *wallet.Store
	store   repositories.Store
}

func NewWalletHandler(ledgerService *ledger.Service, wallets *wallet.Store, store repositories.Store) *WalletHandler {
	return &WalletHandler{
		ledger:  ledgerService,
		wallets: wallets,
		store:   store,
	}
}

func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req ledger.DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	v := validation.New()
	v.Deposit(req)
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}
	req.UserID = claims.UserID

	result, err := h.ledger.Deposit(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Deposit successful", result)
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req ledger.WithdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	v := validation.New()
	v.Withdraw(req)
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}
	req.UserID = claims.UserID

	result, err := h.ledger.Withdraw(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Withdrawal successful", result)
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var req ledger.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	v := validation.New()
	v.Transfer(req)
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}
	req.FromUserID = claims.UserID

	result, err := h.ledger.Transfer(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transfer successful", result)
}

// GetBalance returns the caller's balance, converted to ?currency= when
// given.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	view, err := h.wallets.Balance(c.UserContext(), h.store, claims.UserID, c.Query("currency"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Balance retrieved successfully", view)
}

func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	p := pagination.ParseFromRequest(c)
	page, err := h.ledger.History(c.UserContext(), claims.UserID, p.Page, p.Limit)
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = page.Total
	return c.JSON(pagination.Response(p, page.Transactions))
}
