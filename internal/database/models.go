package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Email         string         `gorm:"uniqueIndex;size:255"`
	PasswordHash  string         `gorm:"size:255"`
	Profile       *Profile       `gorm:"constraint:OnDelete:CASCADE"`
	Subscriptions []Subscription `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile 表示用户的求职档案，与 User 一一对应。
// OnboardingSection 记录引导流程当前所在分区，空值表示从头开始。
type Profile struct {
	gorm.Model
	UserID            uint   `gorm:"uniqueIndex"`
	Name              string `gorm:"size:255"`
	Email             string `gorm:"size:255"`
	Mobile            string `gorm:"size:32"`
	Location          string `gorm:"size:255"`
	LinkedinURL       string `gorm:"size:512"`
	PortfolioURL      string `gorm:"size:512"`
	OnboardingSection string `gorm:"size:32"`

	WorkExperiences []WorkExperience `gorm:"constraint:OnDelete:CASCADE"`
	Educations      []Education      `gorm:"constraint:OnDelete:CASCADE"`
	Skills          []Skill          `gorm:"constraint:OnDelete:CASCADE"`
	Projects        []Project        `gorm:"constraint:OnDelete:CASCADE"`
	Achievements    []Achievement    `gorm:"constraint:OnDelete:CASCADE"`
}

// WorkExperience 表示一段工作经历，归属于某个 Profile。
type WorkExperience struct {
	gorm.Model
	ProfileID   uint   `gorm:"index"`
	Company     string `gorm:"size:255"`
	Position    string `gorm:"size:255"`
	StartDate   string `gorm:"size:32"`
	EndDate     string `gorm:"size:32"`
	Description string `gorm:"type:text"`
}

// Education 表示一段教育经历。
type Education struct {
	gorm.Model
	ProfileID   uint   `gorm:"index"`
	Institution string `gorm:"size:255"`
	Degree      string `gorm:"size:255"`
	StartDate   string `gorm:"size:32"`
	EndDate     string `gorm:"size:32"`
	Description string `gorm:"type:text"`
}

// Skill 表示单个技能条目，按名称逐行存储。
type Skill struct {
	gorm.Model
	ProfileID uint   `gorm:"index"`
	Name      string `gorm:"size:128"`
}

// Project 表示一个项目经历。
type Project struct {
	gorm.Model
	ProfileID   uint   `gorm:"index"`
	Name        string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	URL         string `gorm:"size:512"`
}

// Achievement 表示一项荣誉/成就。
type Achievement struct {
	gorm.Model
	ProfileID   uint   `gorm:"index"`
	Title       string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Date        string `gorm:"size:32"`
}

// 订阅状态流转：pending -> active -> cancelled/failed。
// 同一用户同一时刻至多一条 active 记录，由应用层保证。
const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusFailed    = "failed"
)

// Subscription 表示用户的订阅台账，ResumesRemaining 为剩余生成配额。
type Subscription struct {
	gorm.Model
	UserID            uint      `gorm:"index"`
	PlanName          string    `gorm:"size:32"`
	Status            string    `gorm:"size:32;index"`
	ResumesRemaining  int       `gorm:"default:0"`
	StartDate         time.Time
	EndDate           time.Time
	RazorpayOrderID   string `gorm:"size:64;uniqueIndex"`
	RazorpayPaymentID string `gorm:"size:64"`
	RazorpaySignature string `gorm:"size:128"`
}

// 简历生成任务状态。
const (
	GenerationStatusQueued    = "queued"
	GenerationStatusCompleted = "completed"
	GenerationStatusFailed    = "failed"
)

// JobDescription 表示一次生成请求的输入，写入后不可变。
// Analysis 保存 AI 返回的结构化分析结果（JSONB）。
type JobDescription struct {
	gorm.Model
	UserID      uint           `gorm:"index"`
	Content     string         `gorm:"type:text"`
	Status      string         `gorm:"size:32"`
	Analysis    datatypes.JSON `gorm:"type:jsonb"`
	ArtifactKey string         `gorm:"size:512"`
}

// AllModels 列出需要迁移的全部模型，供 cmd 层 AutoMigrate 使用。
func AllModels() []any {
	return []any{
		&User{},
		&Profile{},
		&WorkExperience{},
		&Education{},
		&Skill{},
		&Project{},
		&Achievement{},
		&Subscription{},
		&JobDescription{},
	}
}
