package service

import (
	"context"
	"errors"
	"fmt"

	"gallery-shop/internal/models"
	"gallery-shop/internal/util"

	"go.uber.org/zap"
)

// PaymentConfirmationHandler applies payment confirmations from the payment
// provider integration to orders.
type PaymentConfirmationHandler struct {
	events ProcessedEventLog
	orders *OrderService
	logger *zap.Logger
}

// NewPaymentConfirmationHandler creates a new payment confirmation handler
func NewPaymentConfirmationHandler(events ProcessedEventLog, orders *OrderService) *PaymentConfirmationHandler {
	return &PaymentConfirmationHandler{
		events: events,
		orders: orders,
		logger: util.GetLogger(),
	}
}

// HandlePaymentConfirmed marks the order paid. Redelivered events and
// confirmations for orders that are already paid are acknowledged without error.
func (h *PaymentConfirmationHandler) HandlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	ctx, span := util.StartSpan(ctx, "PaymentConfirmationHandler.HandlePaymentConfirmed")
	defer span.End()

	processed, err := h.events.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		h.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	h.logger.Info("Handling payment confirmation",
		zap.Int64("order_id", event.OrderID),
		zap.String("tx_id", event.TxID))

	order, err := h.orders.MarkPaid(ctx, event.OrderID, event.TxID)
	switch {
	case errors.Is(err, ErrAlreadyPaid):
		h.logger.Warn("Payment confirmation for already paid order",
			zap.Int64("order_id", event.OrderID),
			zap.String("tx_id", event.TxID))
	case errors.Is(err, ErrOrderNotFound):
		h.logger.Error("Payment confirmation for unknown order", zap.Int64("order_id", event.OrderID))
	case err != nil:
		return err
	default:
		if !order.TotalPrice.Equal(event.Amount) {
			h.logger.Warn("Paid amount differs from order total",
				zap.Int64("order_id", order.ID),
				zap.String("total_price", order.TotalPrice.String()),
				zap.String("amount", event.Amount.String()))
		}
	}

	if err := h.events.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		h.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
