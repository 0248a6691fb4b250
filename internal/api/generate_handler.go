package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"resumegenius/internal/api/middleware"
	"resumegenius/internal/database"
	"resumegenius/internal/ledger"
	"resumegenius/internal/storage"
	"resumegenius/internal/tasks"
)

// 职位描述太短时 AI 给不出有意义的匹配分析。
const minJobDescriptionRunes = 50

// TaskEnqueuer 抽象 asynq 客户端入队，便于测试替换。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ArtifactStore 抽象制品存储的查询与预签名。
type ArtifactStore interface {
	StatObject(ctx context.Context, objectKey string) (minio.ObjectInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// GenerateHandler 负责生成请求的受理与制品下载。
// 受理路径先原子预占配额再落任务行、再入队；任一步失败立即归还配额，
// 保证失败的请求不消耗用户额度。
type GenerateHandler struct {
	db       *gorm.DB
	quota    *ledger.Ledger
	enqueuer TaskEnqueuer
	storage  ArtifactStore
	logger   *slog.Logger
}

// NewGenerateHandler 构造生成处理器。
func NewGenerateHandler(db *gorm.DB, enqueuer TaskEnqueuer, storageClient ArtifactStore, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		db:       db,
		quota:    ledger.New(db),
		enqueuer: enqueuer,
		storage:  storageClient,
		logger:   logger,
	}
}

type generateRequest struct {
	JobDescription string `json:"job_description" binding:"required"`
}

// Generate 受理一次简历生成请求并返回 202。
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	content := strings.TrimSpace(req.JobDescription)
	if utf8.RuneCountInString(content) < minJobDescriptionRunes {
		BadRequest(c, "job description too short")
		return
	}

	sub, err := h.quota.Reserve(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNoActiveSubscription):
			PaymentRequired(c, "no active subscription")
		case errors.Is(err, ledger.ErrQuotaExhausted):
			Forbidden(c, "resume quota exhausted")
		default:
			logger.Error("reserve quota failed", slog.Any("error", err))
			Internal(c, "internal error")
		}
		return
	}

	jd := database.JobDescription{
		UserID:  userID,
		Content: content,
		Status:  database.GenerationStatusQueued,
	}
	if err := h.db.WithContext(ctx).Create(&jd).Error; err != nil {
		logger.Error("create job description failed", slog.Any("error", err))
		h.refund(ctx, sub.ID, logger)
		Internal(c, "internal error")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeGenerateTask(jd.ID, userID, sub.ID, correlationID)
	if err != nil {
		logger.Error("build generate task failed", slog.Any("error", err))
		h.refund(ctx, sub.ID, logger)
		h.markFailed(ctx, jd.ID, logger)
		Internal(c, "internal error")
		return
	}

	info, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(3))
	if err != nil {
		logger.Error("enqueue generate task failed", slog.Any("error", err))
		h.refund(ctx, sub.ID, logger)
		h.markFailed(ctx, jd.ID, logger)
		Internal(c, "failed to enqueue generation")
		return
	}

	logger.Info("resume generation accepted",
		slog.Uint64("job_description_id", uint64(jd.ID)),
		slog.String("task_id", info.ID),
		slog.Int("resumes_remaining", sub.ResumesRemaining),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"job_description_id": jd.ID,
		"task_id":            info.ID,
		"resumes_remaining":  sub.ResumesRemaining,
	})
}

type generationListItem struct {
	ID          uint      `json:"id"`
	Status      string    `json:"status"`
	ArtifactKey string    `json:"artifact_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListGenerations 按时间倒序返回用户的生成历史。
func (h *GenerateHandler) ListGenerations(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var rows []database.JobDescription
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		loggerFrom(c, h.logger).Error("list generations failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	items := make([]generationListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, generationListItem{
			ID:          row.ID,
			Status:      row.Status,
			ArtifactKey: row.ArtifactKey,
			CreatedAt:   row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetArtifactLink 生成最新简历制品的预签名下载链接。
// 制品 Key 固定，新生成的简历覆盖旧文件，这里始终指向最新一份。
func (h *GenerateHandler) GetArtifactLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	objectKey := storage.ResumeArtifactKey(userID)

	if _, err := h.storage.StatObject(ctx, objectKey); err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "no resume generated yet")
			return
		}
		loggerFrom(c, h.logger).Error("stat artifact failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, objectKey, 5*time.Minute)
	if err != nil {
		loggerFrom(c, h.logger).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *GenerateHandler) refund(ctx context.Context, subscriptionID uint, logger *slog.Logger) {
	if err := h.quota.Refund(ctx, subscriptionID); err != nil {
		logger.Error("refund reserved quota failed", slog.Any("error", err))
	}
}

func (h *GenerateHandler) markFailed(ctx context.Context, jobDescriptionID uint, logger *slog.Logger) {
	if err := h.db.WithContext(ctx).Model(&database.JobDescription{}).
		Where("id = ?", jobDescriptionID).
		Update("status", database.GenerationStatusFailed).Error; err != nil {
		logger.Error("mark job description failed", slog.Any("error", err))
	}
}
