package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeGenerate = "resume:generate"
)

// ResumeGeneratePayload 描述生成一份简历所需的最小信息。
// SubscriptionID 用于任务终态失败时归还预占的配额。
type ResumeGeneratePayload struct {
	JobDescriptionID uint   `json:"job_description_id"`
	UserID           uint   `json:"user_id"`
	SubscriptionID   uint   `json:"subscription_id"`
	CorrelationID    string `json:"correlation_id"`
}

// NewResumeGenerateTask 构造一个新的简历生成任务。
func NewResumeGenerateTask(jobDescriptionID, userID, subscriptionID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResumeGeneratePayload{
		JobDescriptionID: jobDescriptionID,
		UserID:           userID,
		SubscriptionID:   subscriptionID,
		CorrelationID:    correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeGenerate, payload), nil
}
