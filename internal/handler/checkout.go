package handler

import (
	"net/http"

	"examprep-billing/internal/apperrors"
	"examprep-billing/internal/client"
	"examprep-billing/internal/dto"
	"examprep-billing/internal/logger"
	"examprep-billing/internal/middleware"
	"examprep-billing/internal/service"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	paymentClient   client.PaymentClient
}

func NewCheckoutHandler(checkoutService service.CheckoutService, paymentClient client.PaymentClient) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		paymentClient:   paymentClient,
	}
}

// Checkout builds the session, then hands the descriptor to the payment
// collaborator. The builder never talks to the provider itself.
func (h *CheckoutHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	identity := middleware.IdentityFrom(c)

	built, err := h.checkoutService.Build(ctx, service.BuildParams{
		CartItemIDs:    req.ItemIDs,
		CouponCode:     req.CouponCode,
		PayerUserID:    identity.UserID,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return mapError(err)
	}

	resp := &dto.CheckoutResponse{
		SessionID:        built.Session.ID,
		Mode:             string(built.Session.Mode),
		AmountMinorUnits: built.Session.AmountMinorUnits,
		Currency:         built.Session.Currency,
	}

	providerResp, err := h.paymentClient.CreateSession(ctx, built.Session, built.LineItems)
	if err != nil {
		logger.FromContext(ctx).Error("provider session creation failed", "error", err, "session_id", built.Session.ID)
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	}
	resp.ApprovalURL = providerResp.ApprovalURL

	return c.JSON(http.StatusOK, resp)
}

// mapError translates apperrors into echo HTTP errors with the structured
// body callers rely on.
func mapError(err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return echo.NewHTTPError(appErr.HTTPCode, appErr)
	}
	return err
}
