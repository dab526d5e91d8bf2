package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"examprep-billing/internal/client"
	"examprep-billing/internal/logger"
	"examprep-billing/internal/model"
	"examprep-billing/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	paymentClient      client.PaymentClient
	fulfillmentService service.FulfillmentService
}

func NewWebhookHandler(paymentClient client.PaymentClient, fulfillmentService service.FulfillmentService) *WebhookHandler {
	return &WebhookHandler{
		paymentClient:      paymentClient,
		fulfillmentService: fulfillmentService,
	}
}

// PaymentWebhook consumes the provider's confirmation events. Delivery is
// at-least-once; fulfillment handles the dedup.
func (h *WebhookHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body")
	}

	if err := h.paymentClient.VerifyWebhookSignature(ctx, c.Request().Header, body); err != nil {
		logger.FromContext(ctx).Warn("webhook signature rejected", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var event model.PaymentWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "decode webhook payload")
	}

	switch event.EventType {
	case model.EventPaymentConfirmed, model.EventSubscriptionActive:
		err = h.fulfillmentService.OnPaymentConfirmed(ctx,
			event.Resource.SessionID, event.Resource.TransactionID, event.Resource.Payer)
		if err != nil {
			logger.FromContext(ctx).Error("fulfillment failed", "error", err,
				"event_id", event.ID, "transaction_id", event.Resource.TransactionID)
			// Non-2xx makes the provider redeliver; fulfillment is idempotent.
			return echo.NewHTTPError(http.StatusInternalServerError, "fulfillment failed")
		}
	default:
		logger.FromContext(ctx).Info("unhandled webhook event", "event_type", event.EventType)
	}

	return c.NoContent(http.StatusOK)
}
