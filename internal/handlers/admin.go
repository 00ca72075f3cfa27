package handlers

import (
	"context"
	"errors"

	"ledgerly/internal/services/dashboard"
	"ledgerly/internal/utils/pagination"
	"ledgerly/internal/utils/response"
	"ledgerly/internal/worker"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Scanner runs one fraud scan on demand.
type Scanner interface {
	RunOnce(ctx context.Context) (*worker.ScanReport, error)
}

type AdminHandler struct {
	dashboardService dashboard.Service
	scanner          Scanner
	logger           *zap.Logger
}

func NewAdminHandler(dashboardService dashboard.Service, scanner Scanner, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		dashboardService: dashboardService,
		scanner:          scanner,
		logger:           logger,
	}
}

// ListFlags returns flagged transactions, newest first.
func (h *AdminHandler) ListFlags(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)
	flags, total, err := h.dashboardService.ListFlags(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, flags))
}

func (h *AdminHandler) GetTotalBalance(c *fiber.Ctx) error {
	summary, err := h.dashboardService.TotalBalance(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Total balance retrieved successfully", summary)
}

func (h *AdminHandler) GetTransactionSummary(c *fiber.Ctx) error {
	summary, err := h.dashboardService.TransactionSummary(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction summary retrieved successfully", summary)
}

// GetTopUsers ranks users by ?by=balance (default) or ?by=volume.
func (h *AdminHandler) GetTopUsers(c *fiber.Ctx) error {
	by := c.Query("by", dashboard.TopByBalance)
	limit := c.QueryInt("limit", dashboard.DefaultTopLimit)
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}

	users, err := h.dashboardService.TopUsers(c.UserContext(), by, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Top users retrieved successfully", fiber.Map{
		"by":    by,
		"users": users,
	})
}

func (h *AdminHandler) DeleteTransaction(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid transaction id")
	}

	if err := h.dashboardService.SoftDeleteTransaction(c.UserContext(), uint(id)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Transaction deleted successfully", fiber.Map{"id": id})
}

// RunFraudScan triggers a scan outside the schedule and waits for its
// report.
func (h *AdminHandler) RunFraudScan(c *fiber.Ctx) error {
	if h.scanner == nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "fraud scanner is not configured")
	}

	report, err := h.scanner.RunOnce(c.UserContext())
	if errors.Is(err, worker.ErrScanInProgress) {
		return response.Error(c, fiber.StatusConflict, err.Error())
	}
	if err != nil {
		h.logger.Error("manual fraud scan failed", zap.Error(err))
		return response.Error(c, fiber.StatusInternalServerError, "Fraud scan failed")
	}
	return response.Success(c, "Fraud scan completed", report)
}
