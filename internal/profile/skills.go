package profile

import "strings"

// 前端把技能集合展平为逗号分隔的字符串提交。
// 入库前做裁剪与大小写不敏感去重，保持展示顺序为首次出现顺序。

// SplitSkills 将逗号分隔的技能串拆分为去重后的技能名列表。
func SplitSkills(flat string) []string {
	parts := strings.Split(flat, ",")
	seen := make(map[string]struct{}, len(parts))
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, name)
	}
	return result
}

// FlattenSkills 将技能名列表拼接回逗号分隔的字符串。
func FlattenSkills(names []string) string {
	return strings.Join(names, ", ")
}
