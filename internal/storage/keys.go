package storage

import "fmt"

// ResumeArtifactKey 返回用户简历制品的固定对象 Key。
// 路径固定意味着每次生成都会覆盖上一份，只保留最新制品。
func ResumeArtifactKey(userID uint) string {
	return fmt.Sprintf("%d/resume.pdf", userID)
}
