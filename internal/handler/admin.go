package handler

import (
	"net/http"
	"time"

	"examprep-billing/internal/dto"
	"examprep-billing/internal/service"

	"github.com/labstack/echo/v4"
)

// AdminHandler exposes the override surface. It writes straight to the
// ledger, bypassing checkout and coupons entirely.
type AdminHandler struct {
	ledgerService service.LedgerService
	now           func() time.Time
}

func NewAdminHandler(ledgerService service.LedgerService, now func() time.Time) *AdminHandler {
	if now == nil {
		now = time.Now
	}
	return &AdminHandler{
		ledgerService: ledgerService,
		now:           now,
	}
}

func (h *AdminHandler) GrantOverride(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AdminGrantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.SubjectID == "" || req.DurationDays <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id, subject_id and a positive duration_days are required")
	}

	purchase, err := h.ledgerService.GrantAdminOverride(ctx, req.UserID, req.SubjectID, req.DurationDays)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, dto.PurchaseResponse{
		ID:            purchase.ID,
		SubjectID:     purchase.SubjectID,
		Type:          string(purchase.Type),
		HasPrinting:   purchase.HasPrinting,
		HasAiInsights: purchase.HasAiInsights,
		ExpiresAt:     purchase.ExpiresAt,
	})
}

func (h *AdminHandler) RevokePurchase(c echo.Context) error {
	ctx := c.Request().Context()
	purchaseID := c.Param("id")

	if err := h.ledgerService.Revoke(ctx, purchaseID); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) GrantBundle(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.AdminBundleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.DurationDays <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and a positive duration_days are required")
	}

	expiry := h.now().AddDate(0, 0, req.DurationDays)
	if err := h.ledgerService.GrantBundle(ctx, req.UserID, expiry); err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"user_id":       req.UserID,
		"bundle_expiry": expiry,
	})
}

// Revenue reports real payments only; admin-granted rows are excluded.
func (h *AdminHandler) Revenue(c echo.Context) error {
	revenue, err := h.ledgerService.RevenueBySubject(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, revenue)
}
