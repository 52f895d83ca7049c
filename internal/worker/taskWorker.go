package worker

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mcp-events/ticketflow/internal/service"
	"github.com/mcp-events/ticketflow/pkg/queue"
)

// TaskWorker routes queued tasks to their handlers.
type TaskWorker struct {
	queue          *queue.RedisQueue
	jobService     service.JobService
	paymentService service.PaymentService
}

func NewTaskWorker(q *queue.RedisQueue, jobService service.JobService, paymentService service.PaymentService) *TaskWorker {
	return &TaskWorker{
		queue:          q,
		jobService:     jobService,
		paymentService: paymentService,
	}
}

func (w *TaskWorker) Start(ctx context.Context) error {
	return w.queue.Subscribe(ctx, w.handle)
}

func (w *TaskWorker) handle(ctx context.Context, task *queue.Task) error {
	switch task.Type {
	case queue.TaskNotifyRecipient:
		return w.jobService.HandleTask(ctx, task)
	case queue.TaskExpirePurchase:
		if id := task.String("purchase_id"); id != "" {
			return w.paymentService.ExpirePurchase(ctx, id)
		}
		return w.paymentService.FailStalePurchases(ctx)
	default:
		logrus.Warnf("Unknown task type %q", task.Type)
		return fmt.Errorf("invalid task type %q", task.Type)
	}
}
