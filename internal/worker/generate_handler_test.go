package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumegenius/internal/ai"
	"resumegenius/internal/database"
	"resumegenius/internal/profile"
	"resumegenius/internal/tasks"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeGenerator struct {
	analysis *ai.Analysis
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, _ *profile.Snapshot) (*ai.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type fakeRenderer struct {
	pdf []byte
	err error
}

func (f *fakeRenderer) RenderPDF(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pdf, nil
}

type fakeUploader struct {
	uploaded map[string][]byte
	err      error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploaded: map[string][]byte{}}
}

func (f *fakeUploader) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(reader)
	f.uploaded[objectName] = data
	return &minio.UploadInfo{Key: objectName}, nil
}

type fakePublisher struct {
	channels []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channels = append(f.channels, channel)
	if data, ok := message.([]byte); ok {
		f.payloads = append(f.payloads, data)
	}
	return redis.NewIntResult(1, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedGeneration(t *testing.T, db *gorm.DB, userID uint) (*database.Subscription, *database.JobDescription) {
	t.Helper()

	store := profile.NewStore(db)
	prof, err := store.UpsertPersonalInfo(context.Background(), userID, profile.PersonalInfo{
		Name:  "Jane Doe",
		Email: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := store.SaveWorkExperiences(context.Background(), prof.ID, []database.WorkExperience{
		{Company: "Acme", Position: "Engineer"},
	}); err != nil {
		t.Fatalf("seed experience: %v", err)
	}

	now := time.Now()
	sub := database.Subscription{
		UserID:           userID,
		PlanName:         "Starter",
		Status:           database.SubscriptionStatusActive,
		ResumesRemaining: 4, // 预占已在 API 层完成
		StartDate:        now,
		EndDate:          now.Add(30 * 24 * time.Hour),
		RazorpayOrderID:  "order_worker_test",
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	jd := database.JobDescription{
		UserID:  userID,
		Content: "Backend engineer role requiring Go, PostgreSQL and Redis experience building APIs at scale.",
		Status:  database.GenerationStatusQueued,
	}
	if err := db.Create(&jd).Error; err != nil {
		t.Fatalf("seed job description: %v", err)
	}
	return &sub, &jd
}

func TestProcessTaskCompletesGeneration(t *testing.T) {
	db := newTestDB(t)
	sub, jd := seedGeneration(t, db, 1)

	uploader := newFakeUploader()
	publisher := &fakePublisher{}
	h := NewGenerateTaskHandler(db,
		&fakeGenerator{analysis: &ai.Analysis{ATSScore: 85, ProfessionalSummary: "Seasoned engineer."}},
		&fakeRenderer{pdf: []byte("%PDF-1.4 test")},
		uploader,
		publisher,
		discardLogger(),
	)

	task, err := tasks.NewResumeGenerateTask(jd.ID, 1, sub.ID, "corr-1")
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process task: %v", err)
	}

	var reloaded database.JobDescription
	if err := db.First(&reloaded, jd.ID).Error; err != nil {
		t.Fatalf("reload job description: %v", err)
	}
	if reloaded.Status != database.GenerationStatusCompleted {
		t.Errorf("expected completed status, got %q", reloaded.Status)
	}
	if reloaded.ArtifactKey != "1/resume.pdf" {
		t.Errorf("expected fixed artifact key, got %q", reloaded.ArtifactKey)
	}
	if len(reloaded.Analysis) == 0 {
		t.Error("expected analysis persisted")
	}

	if _, ok := uploader.uploaded["1/resume.pdf"]; !ok {
		t.Errorf("expected artifact uploaded, got %v", uploader.uploaded)
	}

	if len(publisher.channels) != 1 || publisher.channels[0] != "user_notify:1" {
		t.Fatalf("expected one notification on user_notify:1, got %v", publisher.channels)
	}
	var notify GenerationNotifyMessage
	if err := json.Unmarshal(publisher.payloads[0], &notify); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if notify.Status != database.GenerationStatusCompleted || notify.ATSScore != 85 {
		t.Errorf("unexpected notification %+v", notify)
	}
}

// 制品 Key 固定：第二次生成覆盖同一对象，只保留最新一份。
func TestProcessTaskOverwritesPreviousArtifact(t *testing.T) {
	db := newTestDB(t)
	sub, jd := seedGeneration(t, db, 1)

	uploader := newFakeUploader()
	h := NewGenerateTaskHandler(db,
		&fakeGenerator{analysis: &ai.Analysis{ATSScore: 70}},
		&fakeRenderer{pdf: []byte("first")},
		uploader,
		&fakePublisher{},
		discardLogger(),
	)

	task, _ := tasks.NewResumeGenerateTask(jd.ID, 1, sub.ID, "corr-1")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("first generation: %v", err)
	}

	second := database.JobDescription{
		UserID:  1,
		Content: "Another backend role with emphasis on distributed systems, Go and message queues experience.",
		Status:  database.GenerationStatusQueued,
	}
	if err := db.Create(&second).Error; err != nil {
		t.Fatalf("seed second job description: %v", err)
	}

	h.renderer = &fakeRenderer{pdf: []byte("second")}
	task, _ = tasks.NewResumeGenerateTask(second.ID, 1, sub.ID, "corr-2")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("second generation: %v", err)
	}

	if len(uploader.uploaded) != 1 {
		t.Fatalf("expected a single artifact object, got %d", len(uploader.uploaded))
	}
	if string(uploader.uploaded["1/resume.pdf"]) != "second" {
		t.Errorf("expected latest artifact retained, got %q", uploader.uploaded["1/resume.pdf"])
	}
}

func TestProcessTaskUnknownJobDescriptionSkips(t *testing.T) {
	db := newTestDB(t)
	h := NewGenerateTaskHandler(db,
		&fakeGenerator{analysis: &ai.Analysis{}},
		&fakeRenderer{pdf: []byte("pdf")},
		newFakeUploader(),
		&fakePublisher{},
		discardLogger(),
	)

	task, _ := tasks.NewResumeGenerateTask(999, 1, 1, "corr-1")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("missing job description should be skipped, got %v", err)
	}
}

func TestProcessTaskGeneratorFailureReturnsError(t *testing.T) {
	db := newTestDB(t)
	sub, jd := seedGeneration(t, db, 1)

	h := NewGenerateTaskHandler(db,
		&fakeGenerator{err: errors.New("model unavailable")},
		&fakeRenderer{pdf: []byte("pdf")},
		newFakeUploader(),
		&fakePublisher{},
		discardLogger(),
	)

	task, _ := tasks.NewResumeGenerateTask(jd.ID, 1, sub.ID, "corr-1")
	if err := h.ProcessTask(context.Background(), task); err == nil {
		t.Fatal("expected error so asynq can retry")
	}

	// 非终态失败：任务行保持 queued，等待重试。
	var reloaded database.JobDescription
	if err := db.First(&reloaded, jd.ID).Error; err != nil {
		t.Fatalf("reload job description: %v", err)
	}
	if reloaded.Status != database.GenerationStatusQueued {
		t.Errorf("non-final failure must not change status, got %q", reloaded.Status)
	}
}

// 终态失败路径：归还配额、标记任务行、推送失败通知。
func TestFailGenerationRefundsAndNotifies(t *testing.T) {
	db := newTestDB(t)
	sub, jd := seedGeneration(t, db, 1)

	publisher := &fakePublisher{}
	h := NewGenerateTaskHandler(db,
		&fakeGenerator{},
		&fakeRenderer{},
		newFakeUploader(),
		publisher,
		discardLogger(),
	)

	payload := tasks.ResumeGeneratePayload{
		JobDescriptionID: jd.ID,
		UserID:           1,
		SubscriptionID:   sub.ID,
		CorrelationID:    "corr-1",
	}
	h.failGeneration(context.Background(), payload, errors.New("render crashed"), discardLogger())

	var reloadedSub database.Subscription
	if err := db.First(&reloadedSub, sub.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if reloadedSub.ResumesRemaining != 5 {
		t.Errorf("expected quota refunded to 5, got %d", reloadedSub.ResumesRemaining)
	}

	var reloadedJD database.JobDescription
	if err := db.First(&reloadedJD, jd.ID).Error; err != nil {
		t.Fatalf("reload job description: %v", err)
	}
	if reloadedJD.Status != database.GenerationStatusFailed {
		t.Errorf("expected failed status, got %q", reloadedJD.Status)
	}

	if len(publisher.payloads) != 1 {
		t.Fatalf("expected one failure notification, got %d", len(publisher.payloads))
	}
	var notify GenerationNotifyMessage
	if err := json.Unmarshal(publisher.payloads[0], &notify); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if notify.Status != database.GenerationStatusFailed || notify.ErrorMessage == "" {
		t.Errorf("unexpected notification %+v", notify)
	}
}
