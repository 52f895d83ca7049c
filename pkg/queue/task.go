package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task types handled by the background workers.
const (
	TaskNotifyRecipient = "notify_recipient"
	TaskExpirePurchase  = "expire_purchase"
)

// DefaultMaxRetries is the retry budget stamped on new tasks. Handlers
// treating an exhausted budget as terminal fall back to it when a task
// arrives without one.
const DefaultMaxRetries = 3

// Task is a unit of background work moved through the Redis queues.
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	Attempts   int                    `json:"attempts"`
	MaxRetries int                    `json:"max_retries"`
	CreatedAt  time.Time              `json:"created_at"`
	ExecuteAt  time.Time              `json:"execute_at"`
}

// NewTask builds a task ready for immediate execution.
func NewTask(taskType string, data map[string]interface{}) *Task {
	if data == nil {
		data = make(map[string]interface{})
	}
	now := time.Now()
	return &Task{
		ID:         generateTaskID(),
		Type:       taskType,
		Data:       data,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		ExecuteAt:  now,
	}
}

// NewDelayedTask builds a task scheduled for a future moment.
func NewDelayedTask(taskType string, data map[string]interface{}, executeAt time.Time) *Task {
	task := NewTask(taskType, data)
	task.ExecuteAt = executeAt
	return task
}

// String returns a string value from the task payload, empty when absent.
func (t *Task) String(key string) string {
	if v, ok := t.Data[key].(string); ok {
		return v
	}
	return ""
}

func generateTaskID() string {
	return fmt.Sprintf("task_%s", uuid.NewString())
}
