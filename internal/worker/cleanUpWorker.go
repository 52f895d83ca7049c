package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/internal/service"
)

// PurchaseCleanupWorker periodically fails purchases whose provider order
// was never captured, so abandoned checkouts do not linger as pending.
type PurchaseCleanupWorker struct {
	paymentService service.PaymentService
	interval       time.Duration
}

func NewPurchaseCleanupWorker(paymentService service.PaymentService, interval time.Duration) *PurchaseCleanupWorker {
	return &PurchaseCleanupWorker{
		paymentService: paymentService,
		interval:       interval,
	}
}

func (w *PurchaseCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Purchase cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Purchase cleanup worker stopped")
			return
		case <-ticker.C:
			if err := w.paymentService.FailStalePurchases(ctx); err != nil {
				logrus.Errorf("Purchase cleanup failed: %v", err)
			}
		}
	}
}
