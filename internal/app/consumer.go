package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
)

// PaymentStatusConsumer mirrors gateway payment webhooks into the local
// payments table so manual reconciliation can read selections without a
// gateway round trip.
type PaymentStatusConsumer struct {
	repo store.Repository
}

func NewPaymentStatusConsumer(repo store.Repository) *PaymentStatusConsumer {
	return &PaymentStatusConsumer{repo: repo}
}

// HandleMessage processes one payment status event. Returning false requeues
// the delivery; malformed payloads are acknowledged and dropped since a retry
// cannot fix them.
func (c *PaymentStatusConsumer) HandleMessage(body []byte) bool {
	var event domain.PaymentStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("payment-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if strings.TrimSpace(event.Reference) == "" {
		log.Printf("payment-consumer: missing payment reference in event %+v", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("payment-consumer: processing error for payment %s: %v", event.Reference, err)
		return false
	}

	return true
}

func (c *PaymentStatusConsumer) processEvent(ctx context.Context, event domain.PaymentStatusEvent) error {
	payment := &domain.Payment{
		Reference: strings.TrimSpace(event.Reference),
		Amount:    event.Amount,
		Status:    normalizePaymentStatus(event.Status),
		Metadata:  event.Metadata,
	}
	if err := c.repo.UpsertPaymentFromGateway(ctx, payment); err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	if payment.Status == "failed" && event.Reason != "" {
		log.Printf("payment-consumer: payment %s failed at gateway: %s", payment.Reference, event.Reason)
	}
	return nil
}

func normalizePaymentStatus(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	switch status {
	case "successful", "success", "confirmed", "completed":
		return "confirmed"
	case "failed", "failure", "declined":
		return "failed"
	case "initiated", "processing", "pending":
		return "pending"
	default:
		return status
	}
}
