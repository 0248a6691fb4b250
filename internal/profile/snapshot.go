package profile

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"resumegenius/internal/database"
)

// Snapshot 是传给内容生成协作方的扁平化档案记录。
// 字段命名与生成提示词中的 JSON 结构保持一致。
type Snapshot struct {
	Name         string                    `json:"name"`
	Email        string                    `json:"email"`
	Mobile       string                    `json:"mobile"`
	Location     string                    `json:"location"`
	LinkedinURL  string                    `json:"linkedin_url"`
	PortfolioURL string                    `json:"portfolio_url"`
	Experience   []database.WorkExperience `json:"experience"`
	Education    []database.Education      `json:"education"`
	Skills       []string                  `json:"skills"`
	Projects     []database.Project        `json:"projects"`
	Achievements []database.Achievement    `json:"achievements"`
}

// ErrProfileNotFound 表示用户尚未创建档案。
var ErrProfileNotFound = errors.New("profile not found")

// LoadSnapshot 聚合档案主表与全部子表，构造扁平化记录。
func (s *Store) LoadSnapshot(ctx context.Context, userID uint) (*Snapshot, error) {
	p, err := s.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	experiences, err := s.ListWorkExperiences(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	educations, err := s.ListEducations(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	skillRows, err := s.ListSkills(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	projects, err := s.ListProjects(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	achievements, err := s.ListAchievements(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	skills := make([]string, 0, len(skillRows))
	for _, row := range skillRows {
		skills = append(skills, row.Name)
	}

	return &Snapshot{
		Name:         p.Name,
		Email:        p.Email,
		Mobile:       p.Mobile,
		Location:     p.Location,
		LinkedinURL:  p.LinkedinURL,
		PortfolioURL: p.PortfolioURL,
		Experience:   experiences,
		Education:    educations,
		Skills:       skills,
		Projects:     projects,
		Achievements: achievements,
	}, nil
}
