package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumegenius/internal/database"
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

func newJSONContext(t *testing.T, method, target string, payload any, userID uint) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if userID != 0 {
		c.Set("userID", userID)
	}
	return c, w
}

func seedActiveSubscription(t *testing.T, db *gorm.DB, userID uint, remaining int) *database.Subscription {
	t.Helper()
	now := time.Now()
	sub := database.Subscription{
		UserID:           userID,
		PlanName:         "Starter",
		Status:           database.SubscriptionStatusActive,
		ResumesRemaining: remaining,
		StartDate:        now,
		EndDate:          now.Add(30 * 24 * time.Hour),
		RazorpayOrderID:  "order_seed_active",
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return &sub
}

type fakeEnqueuer struct {
	enqueued []*asynq.Task
	err      error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, task)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

type fakeArtifactStore struct {
	objects map[string]struct{}
	presign string
}

func newFakeArtifactStore() *fakeArtifactStore {
	return &fakeArtifactStore{objects: map[string]struct{}{}}
}

func (f *fakeArtifactStore) StatObject(_ context.Context, objectKey string) (minio.ObjectInfo, error) {
	if _, ok := f.objects[objectKey]; ok {
		return minio.ObjectInfo{Key: objectKey}, nil
	}
	return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}
}

func (f *fakeArtifactStore) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	if f.presign != "" {
		return f.presign, nil
	}
	return "https://example.invalid/" + objectKey, nil
}

const validJobDescription = "We are hiring a backend engineer with strong Go, PostgreSQL and Redis experience to build APIs."

func TestGenerateRejectsShortJobDescription(t *testing.T) {
	db := newTestDB(t)
	seedActiveSubscription(t, db, 1, 5)
	enqueuer := &fakeEnqueuer{}
	h := NewGenerateHandler(db, enqueuer, newFakeArtifactStore(), nil)

	short := strings.Repeat("x", 49)
	c, w := newJSONContext(t, http.MethodPost, "/v1/resume/generate", gin.H{"job_description": short}, 1)
	h.Generate(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&database.JobDescription{}).Count(&count)
	if count != 0 {
		t.Errorf("short request must not persist a job description, found %d", count)
	}
	var sub database.Subscription
	db.Where("user_id = ?", 1).First(&sub)
	if sub.ResumesRemaining != 5 {
		t.Errorf("short request must not consume quota, remaining=%d", sub.ResumesRemaining)
	}
}

func TestGenerateAcceptsFiftyRunes(t *testing.T) {
	db := newTestDB(t)
	seedActiveSubscription(t, db, 1, 5)
	enqueuer := &fakeEnqueuer{}
	h := NewGenerateHandler(db, enqueuer, newFakeArtifactStore(), nil)

	exact := strings.Repeat("x", 50)
	c, w := newJSONContext(t, http.MethodPost, "/v1/resume/generate", gin.H{"job_description": exact}, 1)
	h.Generate(c)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d body=%s", w.Code, w.Body.String())
	}
	if len(enqueuer.enqueued) != 1 {
		t.Fatalf("expected one enqueued task, got %d", len(enqueuer.enqueued))
	}

	var resp struct {
		JobDescriptionID uint   `json:"job_description_id"`
		TaskID           string `json:"task_id"`
		ResumesRemaining int    `json:"resumes_remaining"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobDescriptionID == 0 || resp.TaskID != "task-1" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.ResumesRemaining != 4 {
		t.Errorf("expected remaining 4 after reservation, got %d", resp.ResumesRemaining)
	}

	var jd database.JobDescription
	if err := db.First(&jd, resp.JobDescriptionID).Error; err != nil {
		t.Fatalf("load job description: %v", err)
	}
	if jd.Status != database.GenerationStatusQueued {
		t.Errorf("expected status queued, got %q", jd.Status)
	}
}

func TestGenerateWithoutSubscription(t *testing.T) {
	db := newTestDB(t)
	h := NewGenerateHandler(db, &fakeEnqueuer{}, newFakeArtifactStore(), nil)

	c, w := newJSONContext(t, http.MethodPost, "/v1/resume/generate", gin.H{"job_description": validJobDescription}, 1)
	h.Generate(c)

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	db.Model(&database.JobDescription{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected request must not persist a job description, found %d", count)
	}
}

func TestGenerateQuotaExhausted(t *testing.T) {
	db := newTestDB(t)
	seedActiveSubscription(t, db, 1, 0)
	h := NewGenerateHandler(db, &fakeEnqueuer{}, newFakeArtifactStore(), nil)

	c, w := newJSONContext(t, http.MethodPost, "/v1/resume/generate", gin.H{"job_description": validJobDescription}, 1)
	h.Generate(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	db.Model(&database.JobDescription{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected request must not persist a job description, found %d", count)
	}
}

func TestGenerateEnqueueFailureRefundsQuota(t *testing.T) {
	db := newTestDB(t)
	seedActiveSubscription(t, db, 1, 3)
	h := NewGenerateHandler(db, &fakeEnqueuer{err: errors.New("redis down")}, newFakeArtifactStore(), nil)

	c, w := newJSONContext(t, http.MethodPost, "/v1/resume/generate", gin.H{"job_description": validJobDescription}, 1)
	h.Generate(c)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d body=%s", w.Code, w.Body.String())
	}

	var sub database.Subscription
	db.Where("user_id = ?", 1).First(&sub)
	if sub.ResumesRemaining != 3 {
		t.Errorf("enqueue failure must refund quota, remaining=%d", sub.ResumesRemaining)
	}

	var jd database.JobDescription
	if err := db.Where("user_id = ?", 1).First(&jd).Error; err != nil {
		t.Fatalf("load job description: %v", err)
	}
	if jd.Status != database.GenerationStatusFailed {
		t.Errorf("expected job description marked failed, got %q", jd.Status)
	}
}

func TestGetArtifactLinkMissing(t *testing.T) {
	db := newTestDB(t)
	h := NewGenerateHandler(db, &fakeEnqueuer{}, newFakeArtifactStore(), nil)

	c, w := newJSONContext(t, http.MethodGet, "/v1/resume/artifact", nil, 1)
	h.GetArtifactLink(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestGetArtifactLinkPresigns(t *testing.T) {
	db := newTestDB(t)
	store := newFakeArtifactStore()
	store.objects["1/resume.pdf"] = struct{}{}
	store.presign = "https://cdn.example.com/1/resume.pdf?sig=abc"
	h := NewGenerateHandler(db, &fakeEnqueuer{}, store, nil)

	c, w := newJSONContext(t, http.MethodGet, "/v1/resume/artifact", nil, 1)
	h.GetArtifactLink(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), store.presign) {
		t.Errorf("expected presigned url in response, got %s", w.Body.String())
	}
}
