package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// API（生产者）与 worker（消费者）共用的任务类型。
const (
	TypeEmailConfirmation  = "email:confirmation"
	TypeEmailPasswordReset = "email:password_reset"
	TypeImageSweep         = "image:sweep"
)

// EmailPayload 携带事务邮件所需的数据。
type EmailPayload struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Token         string `json:"token"`
	CorrelationID string `json:"correlation_id"`
}

// NewEmailTask 创建指定邮件类型的任务。
func NewEmailTask(taskType string, p EmailPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload, asynq.MaxRetry(5)), nil
}

// NewImageSweepTask 创建定期清理孤立图片的任务。
func NewImageSweepTask() *asynq.Task {
	return asynq.NewTask(TypeImageSweep, nil, asynq.MaxRetry(1))
}
