// Package notify 发送账号相关邮件。API 将其作为后台任务入队，
// 由 worker 渲染并投递。
package notify

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"realestate/internal/tasks"
)

// Recipient 是账号邮件的收件人。
type Recipient struct {
	Name          string
	Email         string
	Token         string
	CorrelationID string
}

// Notifier 只管投递：发送失败不会影响调用方。
type Notifier interface {
	SendConfirmation(ctx context.Context, r Recipient)
	SendPasswordReset(ctx context.Context, r Recipient)
}

// Enqueuer 是 notifier 用到的 *asynq.Client 方法子集。
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier 将通知转换为邮件任务。
type AsynqNotifier struct {
	client Enqueuer
	logger *slog.Logger
}

// NewAsynqNotifier 包装 asynq 客户端。
func NewAsynqNotifier(client Enqueuer, logger *slog.Logger) *AsynqNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsynqNotifier{client: client, logger: logger}
}

func (n *AsynqNotifier) SendConfirmation(ctx context.Context, r Recipient) {
	n.enqueue(ctx, tasks.TypeEmailConfirmation, r)
}

func (n *AsynqNotifier) SendPasswordReset(ctx context.Context, r Recipient) {
	n.enqueue(ctx, tasks.TypeEmailPasswordReset, r)
}

func (n *AsynqNotifier) enqueue(ctx context.Context, taskType string, r Recipient) {
	log := n.logger.With(
		slog.String("task_type", taskType),
		slog.String("correlation_id", r.CorrelationID),
	)
	task, err := tasks.NewEmailTask(taskType, tasks.EmailPayload{
		Name:          r.Name,
		Email:         r.Email,
		Token:         r.Token,
		CorrelationID: r.CorrelationID,
	})
	if err != nil {
		log.Error("build email task failed", slog.Any("error", err))
		return
	}
	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		log.Error("enqueue email task failed", slog.Any("error", err))
		return
	}
	log.Info("email task enqueued", slog.String("task_id", info.ID))
}
