package onboarding

import "fmt"

// 引导流程的分区状态机：personal -> experience -> education -> skills -> projects。
// 用枚举与显式转移表取代按字符串比较推断进度的做法。

// Section 表示引导流程中的一个分区。
type Section int

const (
	SectionPersonal Section = iota
	SectionExperience
	SectionEducation
	SectionSkills
	SectionProjects
)

var sectionNames = [...]string{
	SectionPersonal:   "personal",
	SectionExperience: "experience",
	SectionEducation:  "education",
	SectionSkills:     "skills",
	SectionProjects:   "projects",
}

// First 返回流程的起始分区。
func First() Section {
	return SectionPersonal
}

// String 返回分区的持久化名称。
func (s Section) String() string {
	if s < SectionPersonal || s > SectionProjects {
		return "unknown"
	}
	return sectionNames[s]
}

// Parse 将持久化名称解析为 Section。
func Parse(name string) (Section, error) {
	for i, n := range sectionNames {
		if n == name {
			return Section(i), nil
		}
	}
	return 0, fmt.Errorf("unknown onboarding section %q", name)
}

// Next 返回当前分区之后的分区；处于终点时 ok 为 false。
func (s Section) Next() (next Section, ok bool) {
	if s >= SectionProjects {
		return s, false
	}
	return s + 1, true
}

// IsTerminal 返回该分区是否为流程终点。
func (s Section) IsTerminal() bool {
	return s == SectionProjects
}

// Advance 返回保存 saved 分区成功后指针应当指向的分区。
// 终点分区保存后指针保持不变（完成态由档案数据本身推断）。
func Advance(saved Section) Section {
	if next, ok := saved.Next(); ok {
		return next
	}
	return saved
}

// Sections 返回按流程顺序排列的全部分区。
func Sections() []Section {
	return []Section{
		SectionPersonal,
		SectionExperience,
		SectionEducation,
		SectionSkills,
		SectionProjects,
	}
}
