package worker

import "fmt"

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
type GenerationNotifyMessage struct {
	Status           string `json:"status"`
	JobDescriptionID uint   `json:"job_description_id"`
	ArtifactKey      string `json:"artifact_key,omitempty"`
	ATSScore         int    `json:"ats_score,omitempty"`
	ResumesRemaining int    `json:"resumes_remaining,omitempty"`
	CorrelationID    string `json:"correlation_id"`
	ErrorCode        int    `json:"error_code"`
	ErrorMessage     string `json:"error_message"`
}

// NotifyChannel 返回某用户的通知频道名。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
