package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"realestate/internal/metrics"
	"realestate/internal/storage"
)

// ImageRefs 列出仍被房源引用的图片名。
type ImageRefs interface {
	ImageNames(ctx context.Context) (map[string]struct{}, error)
}

// ImageSweepHandler 清理没有房源引用且超过宽限期的图片。
// 较新的文件可能属于正在进行的上传。
type ImageSweepHandler struct {
	images storage.Backend
	refs   ImageRefs
	grace  time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewImageSweepHandler 创建清理处理器。
func NewImageSweepHandler(images storage.Backend, refs ImageRefs, grace time.Duration, logger *slog.Logger) *ImageSweepHandler {
	return &ImageSweepHandler{images: images, refs: refs, grace: grace, logger: logger, now: time.Now}
}

// ProcessTask 实现 asynq.Handler。
func (h *ImageSweepHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	removed, err := h.Sweep(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("orphan image sweep finished", slog.Int("removed", removed))
	return nil
}

// Sweep 执行一轮清理，返回删除的文件数。
func (h *ImageSweepHandler) Sweep(ctx context.Context) (int, error) {
	// 先列举存储，期间挂载的图片会出现在引用列表中
	objects, err := h.images.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list images: %w", err)
	}
	refs, err := h.refs.ImageNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("load image references: %w", err)
	}

	cutoff := h.now().Add(-h.grace)
	removed := 0
	for _, obj := range objects {
		if _, used := refs[obj.Key]; used {
			continue
		}
		if obj.LastModified.After(cutoff) {
			continue
		}
		if err := h.images.Remove(ctx, obj.Key); err != nil {
			h.logger.Error("remove orphan image failed", slog.String("image", obj.Key), slog.Any("error", err))
			continue
		}
		removed++
	}
	metrics.OrphanImagesRemoved(removed)
	return removed, nil
}
