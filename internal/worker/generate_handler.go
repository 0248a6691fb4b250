package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumegenius/internal/ai"
	"resumegenius/internal/database"
	"resumegenius/internal/errcode"
	"resumegenius/internal/ledger"
	"resumegenius/internal/metrics"
	"resumegenius/internal/pdf"
	"resumegenius/internal/profile"
	"resumegenius/internal/storage"
	"resumegenius/internal/tasks"
)

// ObjectUploader 是制品存储的抽象，便于测试替换。
type ObjectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Publisher 抽象 Redis 发布，go-redis 客户端直接满足该接口。
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// GenerateTaskHandler 负责消费简历生成任务：
// 调用内容生成协作方、渲染 PDF、上传制品并更新任务行。
// 配额在 API 层入队前已预占；本处理器只在终态失败时归还。
type GenerateTaskHandler struct {
	db        *gorm.DB
	profiles  *profile.Store
	quota     *ledger.Ledger
	generator ai.Generator
	renderer  Renderer
	storage   ObjectUploader
	publisher Publisher
	logger    *slog.Logger
}

// NewGenerateTaskHandler 创建任务处理器。
func NewGenerateTaskHandler(
	db *gorm.DB,
	generator ai.Generator,
	renderer Renderer,
	storage ObjectUploader,
	publisher Publisher,
	logger *slog.Logger,
) *GenerateTaskHandler {
	return &GenerateTaskHandler{
		db:        db,
		profiles:  profile.NewStore(db),
		quota:     ledger.New(db),
		generator: generator,
		renderer:  renderer,
		storage:   storage,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *GenerateTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger
	started := time.Now()

	var payload tasks.ResumeGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("job_description_id", uint64(payload.JobDescriptionID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("starting resume generation task")

	var jd database.JobDescription
	if err := h.db.WithContext(ctx).First(&jd, payload.JobDescriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("job description not found, skipping task")
			return nil
		}
		log.Error("query job description failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}
		h.failGeneration(ctx, payload, retErr, log)
	}()

	snapshot, err := h.profiles.LoadSnapshot(ctx, payload.UserID)
	if err != nil {
		log.Error("load profile snapshot failed", slog.Any("error", err))
		return err
	}

	analysis, err := h.generator.Generate(ctx, jd.Content, snapshot)
	if err != nil {
		log.Error("content generation failed", slog.Any("error", err))
		return err
	}

	htmlContent, err := pdf.BuildResumeHTML(snapshot, analysis)
	if err != nil {
		log.Error("build resume html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := h.renderer.RenderPDF(ctx, htmlContent)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectName := storage.ResumeArtifactKey(payload.UserID)
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		log.Error("marshal analysis failed", slog.Any("error", err))
		return err
	}
	update := map[string]any{
		"status":       database.GenerationStatusCompleted,
		"analysis":     datatypes.JSON(analysisJSON),
		"artifact_key": objectName,
	}
	if err := h.db.WithContext(ctx).Model(&jd).Updates(update).Error; err != nil {
		log.Error("update job description failed", slog.Any("error", err))
		return err
	}

	remaining := 0
	if sub, err := h.quota.ActiveSubscription(ctx, payload.UserID); err == nil {
		remaining = sub.ResumesRemaining
	}

	notify := GenerationNotifyMessage{
		Status:           database.GenerationStatusCompleted,
		JobDescriptionID: jd.ID,
		ArtifactKey:      objectName,
		ATSScore:         analysis.ATSScore,
		ResumesRemaining: remaining,
		CorrelationID:    payload.CorrelationID,
		ErrorCode:        errcode.OK,
	}
	if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	metrics.GenerationCompleted(time.Since(started))
	log.Info("resume generation task completed", slog.Int("ats_score", analysis.ATSScore))
	return nil
}

// failGeneration 在任务终态失败时归还预占配额、标记任务行并通知前端。
// 任务行保留（输入不可变），配额不被消耗，用户可安全重试。
func (h *GenerateTaskHandler) failGeneration(ctx context.Context, payload tasks.ResumeGeneratePayload, taskErr error, log *slog.Logger) {
	metrics.GenerationFailed()

	if err := h.quota.Refund(ctx, payload.SubscriptionID); err != nil {
		log.Error("refund reserved quota failed", slog.Any("error", err))
	}

	if err := h.db.WithContext(ctx).Model(&database.JobDescription{}).
		Where("id = ?", payload.JobDescriptionID).
		Update("status", database.GenerationStatusFailed).Error; err != nil {
		log.Error("mark job description failed", slog.Any("error", err))
	}

	notify := GenerationNotifyMessage{
		Status:           database.GenerationStatusFailed,
		JobDescriptionID: payload.JobDescriptionID,
		CorrelationID:    payload.CorrelationID,
		ErrorCode:        errcode.SystemError,
		ErrorMessage:     strings.TrimSpace(taskErr.Error()),
	}
	if err := h.publishNotify(ctx, payload.UserID, notify); err != nil {
		log.Error("publish failure notification failed", slog.Any("error", err))
	}
}

func (h *GenerateTaskHandler) publishNotify(ctx context.Context, userID uint, notify GenerationNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(userID)
	if err := h.publisher.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
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
