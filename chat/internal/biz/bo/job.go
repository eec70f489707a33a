package bo

import "time"

// JobState 投递任务状态
type JobState string

const (
	JobQueued          JobState = "queued"
	JobRunning         JobState = "running"
	JobSucceeded       JobState = "succeeded"
	JobFailedRetryable JobState = "failed_retryable"
	JobFailedTerminal  JobState = "failed_terminal"
)

// DeliveryJob 一条待投递的聊天消息
type DeliveryJob struct {
	ID         string             `json:"id"`
	OrderID    uint64             `json:"order_id"`
	UserID     uint64             `json:"user_id"`
	Body       string             `json:"body"`
	Type       MessageType        `json:"type"`
	Attachment *PendingAttachment `json:"attachment,omitempty"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
}

// JobResult 任务执行结果
type JobResult struct {
	State    JobState
	Attempts int
	Message  *Message
	Err      error
}
