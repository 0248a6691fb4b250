package profile

// 档案子表的对账逻辑：对比「已持久化的行」与「编辑后的行」，
// 计算出最小的删除/更新/插入操作集合。
//
// 规则：
//   - 原有 ID 在编辑结果中消失 -> 删除；
//   - 编辑行带 ID 且必填字段完整 -> 更新；
//   - 编辑行不带 ID 且必填字段完整 -> 插入；
//   - 编辑行带 ID 但必填字段被清空 -> 删除（视为用户移除该条目）。
//
// 每个逻辑行至多产生一个操作。

// Plan 描述一次对账需要执行的持久化操作。
type Plan[T any] struct {
	Inserts   []T
	Updates   []T
	DeleteIDs []uint
}

// Empty 返回 Plan 是否不包含任何操作。
func (p Plan[T]) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.DeleteIDs) == 0
}

// BuildPlan 基于 existing 与 edited 计算操作集合。
// id 返回行的持久化标识（0 表示尚未持久化），complete 判断必填字段是否齐全。
func BuildPlan[T any](existing, edited []T, id func(T) uint, complete func(T) bool) Plan[T] {
	var plan Plan[T]

	editedIDs := make(map[uint]struct{}, len(edited))
	for _, row := range edited {
		if rowID := id(row); rowID != 0 {
			editedIDs[rowID] = struct{}{}
		}
	}

	// 原有但在编辑结果中消失的 ID 全部删除。
	seen := make(map[uint]struct{}, len(existing))
	for _, row := range existing {
		rowID := id(row)
		if rowID == 0 {
			continue
		}
		seen[rowID] = struct{}{}
		if _, ok := editedIDs[rowID]; !ok {
			plan.DeleteIDs = append(plan.DeleteIDs, rowID)
		}
	}

	for _, row := range edited {
		rowID := id(row)
		switch {
		case rowID == 0:
			if complete(row) {
				plan.Inserts = append(plan.Inserts, row)
			}
		case !complete(row):
			// 带 ID 但必填字段被清空：按删除处理，避免残留脏数据。
			if _, ok := seen[rowID]; ok {
				plan.DeleteIDs = append(plan.DeleteIDs, rowID)
			}
		default:
			plan.Updates = append(plan.Updates, row)
		}
	}

	return plan
}
