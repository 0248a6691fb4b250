package profile

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"resumegenius/internal/database"
)

// Store 封装档案及其子表的读写，对账后的操作按「批量删除、逐行更新、逐行插入」
// 的顺序执行；任一操作失败立即中止该分区余下的操作（不回滚，调用方整段重试）。
type Store struct {
	db *gorm.DB
}

// NewStore 构造档案存储。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// PersonalInfo 表示档案主表上的个人信息字段。
type PersonalInfo struct {
	Name         string
	Email        string
	Mobile       string
	Location     string
	LinkedinURL  string
	PortfolioURL string
}

// UpsertPersonalInfo 写入个人信息；首次保存时创建档案行。
// 返回档案行以便调用方取得 ProfileID。
func (s *Store) UpsertPersonalInfo(ctx context.Context, userID uint, info PersonalInfo) (*database.Profile, error) {
	var profile database.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = database.Profile{
			UserID:       userID,
			Name:         info.Name,
			Email:        info.Email,
			Mobile:       info.Mobile,
			Location:     info.Location,
			LinkedinURL:  info.LinkedinURL,
			PortfolioURL: info.PortfolioURL,
		}
		if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return &profile, nil
	case err != nil:
		return nil, fmt.Errorf("query profile: %w", err)
	}

	updates := map[string]any{
		"name":          info.Name,
		"mobile":        info.Mobile,
		"location":      info.Location,
		"linkedin_url":  info.LinkedinURL,
		"portfolio_url": info.PortfolioURL,
	}
	if info.Email != "" {
		updates["email"] = info.Email
	}
	if err := s.db.WithContext(ctx).Model(&profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &profile, nil
}

// GetByUserID 读取用户档案主表行。
func (s *Store) GetByUserID(ctx context.Context, userID uint) (*database.Profile, error) {
	var profile database.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetOnboardingSection 更新档案上的引导流程指针。
func (s *Store) SetOnboardingSection(ctx context.Context, profileID uint, section string) error {
	return s.db.WithContext(ctx).Model(&database.Profile{}).
		Where("id = ?", profileID).
		Update("onboarding_section", section).Error
}

// ListWorkExperiences 返回档案下的全部工作经历。
func (s *Store) ListWorkExperiences(ctx context.Context, profileID uint) ([]database.WorkExperience, error) {
	var rows []database.WorkExperience
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list work experiences: %w", err)
	}
	return rows, nil
}

// SaveWorkExperiences 将编辑后的工作经历对账落库。
// 必填字段：公司与职位同时非空。
func (s *Store) SaveWorkExperiences(ctx context.Context, profileID uint, edited []database.WorkExperience) error {
	existing, err := s.ListWorkExperiences(ctx, profileID)
	if err != nil {
		return err
	}

	plan := BuildPlan(existing, edited,
		func(r database.WorkExperience) uint { return r.ID },
		func(r database.WorkExperience) bool { return r.Company != "" && r.Position != "" },
	)

	db := s.db.WithContext(ctx)
	if len(plan.DeleteIDs) > 0 {
		if err := db.Delete(&database.WorkExperience{}, plan.DeleteIDs).Error; err != nil {
			return fmt.Errorf("delete work experiences: %w", err)
		}
	}
	for _, row := range plan.Updates {
		updates := map[string]any{
			"company":     row.Company,
			"position":    row.Position,
			"start_date":  row.StartDate,
			"end_date":    row.EndDate,
			"description": row.Description,
		}
		if err := db.Model(&database.WorkExperience{}).Where("id = ? AND profile_id = ?", row.ID, profileID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update work experience %d: %w", row.ID, err)
		}
	}
	for _, row := range plan.Inserts {
		row.ProfileID = profileID
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("insert work experience: %w", err)
		}
	}
	return nil
}

// ListEducations 返回档案下的全部教育经历。
func (s *Store) ListEducations(ctx context.Context, profileID uint) ([]database.Education, error) {
	var rows []database.Education
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list educations: %w", err)
	}
	return rows, nil
}

// SaveEducations 将编辑后的教育经历对账落库。
// 必填字段：院校与学位同时非空。
func (s *Store) SaveEducations(ctx context.Context, profileID uint, edited []database.Education) error {
	existing, err := s.ListEducations(ctx, profileID)
	if err != nil {
		return err
	}

	plan := BuildPlan(existing, edited,
		func(r database.Education) uint { return r.ID },
		func(r database.Education) bool { return r.Institution != "" && r.Degree != "" },
	)

	db := s.db.WithContext(ctx)
	if len(plan.DeleteIDs) > 0 {
		if err := db.Delete(&database.Education{}, plan.DeleteIDs).Error; err != nil {
			return fmt.Errorf("delete educations: %w", err)
		}
	}
	for _, row := range plan.Updates {
		updates := map[string]any{
			"institution": row.Institution,
			"degree":      row.Degree,
			"start_date":  row.StartDate,
			"end_date":    row.EndDate,
			"description": row.Description,
		}
		if err := db.Model(&database.Education{}).Where("id = ? AND profile_id = ?", row.ID, profileID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update education %d: %w", row.ID, err)
		}
	}
	for _, row := range plan.Inserts {
		row.ProfileID = profileID
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("insert education: %w", err)
		}
	}
	return nil
}

// ListProjects 返回档案下的全部项目。
func (s *Store) ListProjects(ctx context.Context, profileID uint) ([]database.Project, error) {
	var rows []database.Project
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return rows, nil
}

// SaveProjects 将编辑后的项目对账落库。必填字段：项目名。
func (s *Store) SaveProjects(ctx context.Context, profileID uint, edited []database.Project) error {
	existing, err := s.ListProjects(ctx, profileID)
	if err != nil {
		return err
	}

	plan := BuildPlan(existing, edited,
		func(r database.Project) uint { return r.ID },
		func(r database.Project) bool { return r.Name != "" },
	)

	db := s.db.WithContext(ctx)
	if len(plan.DeleteIDs) > 0 {
		if err := db.Delete(&database.Project{}, plan.DeleteIDs).Error; err != nil {
			return fmt.Errorf("delete projects: %w", err)
		}
	}
	for _, row := range plan.Updates {
		updates := map[string]any{
			"name":        row.Name,
			"description": row.Description,
			"url":         row.URL,
		}
		if err := db.Model(&database.Project{}).Where("id = ? AND profile_id = ?", row.ID, profileID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update project %d: %w", row.ID, err)
		}
	}
	for _, row := range plan.Inserts {
		row.ProfileID = profileID
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
	}
	return nil
}

// ListAchievements 返回档案下的全部成就。
func (s *Store) ListAchievements(ctx context.Context, profileID uint) ([]database.Achievement, error) {
	var rows []database.Achievement
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return rows, nil
}

// SaveAchievements 将编辑后的成就对账落库。必填字段：标题。
func (s *Store) SaveAchievements(ctx context.Context, profileID uint, edited []database.Achievement) error {
	existing, err := s.ListAchievements(ctx, profileID)
	if err != nil {
		return err
	}

	plan := BuildPlan(existing, edited,
		func(r database.Achievement) uint { return r.ID },
		func(r database.Achievement) bool { return r.Title != "" },
	)

	db := s.db.WithContext(ctx)
	if len(plan.DeleteIDs) > 0 {
		if err := db.Delete(&database.Achievement{}, plan.DeleteIDs).Error; err != nil {
			return fmt.Errorf("delete achievements: %w", err)
		}
	}
	for _, row := range plan.Updates {
		updates := map[string]any{
			"title":       row.Title,
			"description": row.Description,
			"date":        row.Date,
		}
		if err := db.Model(&database.Achievement{}).Where("id = ? AND profile_id = ?", row.ID, profileID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update achievement %d: %w", row.ID, err)
		}
	}
	for _, row := range plan.Inserts {
		row.ProfileID = profileID
		if err := db.Create(&row).Error; err != nil {
			return fmt.Errorf("insert achievement: %w", err)
		}
	}
	return nil
}

// ListSkills 返回档案下的全部技能行。
func (s *Store) ListSkills(ctx context.Context, profileID uint) ([]database.Skill, error) {
	var rows []database.Skill
	if err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return rows, nil
}

// ReplaceSkills 用展平字符串整体替换技能集合（去重后逐行插入）。
func (s *Store) ReplaceSkills(ctx context.Context, profileID uint, flat string) error {
	names := SplitSkills(flat)

	db := s.db.WithContext(ctx)
	if err := db.Where("profile_id = ?", profileID).Delete(&database.Skill{}).Error; err != nil {
		return fmt.Errorf("clear skills: %w", err)
	}
	for _, name := range names {
		if err := db.Create(&database.Skill{ProfileID: profileID, Name: name}).Error; err != nil {
			return fmt.Errorf("insert skill %q: %w", name, err)
		}
	}
	return nil
}
