package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"realestate/internal/notify"
	"realestate/internal/tasks"
)

// EmailTaskHandler 投递 API 入队的账号邮件。
type EmailTaskHandler struct {
	mailer  notify.Mailer
	baseURL string
	logger  *slog.Logger
}

// NewEmailTaskHandler 创建处理器，邮件中的链接指向 baseURL。
func NewEmailTaskHandler(mailer notify.Mailer, baseURL string, logger *slog.Logger) *EmailTaskHandler {
	return &EmailTaskHandler{mailer: mailer, baseURL: baseURL, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *EmailTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal email payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("task_type", t.Type()),
		slog.String("correlation_id", payload.CorrelationID),
	)

	mail, err := notify.Compose(t.Type(), h.baseURL, payload)
	if err != nil {
		log.Error("compose email failed", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := h.mailer.Send(ctx, mail); err != nil {
		if isFinalAsynqAttempt(ctx) {
			log.Error("email delivery gave up", slog.Any("error", err))
		} else {
			log.Warn("email delivery failed, will retry", slog.Any("error", err))
		}
		return err
	}

	log.Info("email delivered")
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
