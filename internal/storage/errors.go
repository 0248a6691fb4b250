package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// 对象缺失对应的 S3 错误码。部分网关返回 NotFound 而非 NoSuchKey。
var missingObjectCodes = map[string]bool{
	"nosuchkey": true,
	"notfound":  true,
}

// IsNoSuchKey 判断错误是否表示对象不存在。
// 用户尚未生成过简历时，制品 Key 的 Stat 会走到这里。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return missingObjectCodes[strings.ToLower(strings.TrimSpace(resp.Code))]
	}

	// 代理或重试层可能丢掉类型信息，只留下字符串。
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "nosuchkey") ||
		strings.Contains(lower, "specified key does not exist") ||
		strings.Contains(lower, "not found")
}
