package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumegenius/internal/database"
	"resumegenius/internal/onboarding"
	"resumegenius/internal/profile"
)

// ProfileHandler 负责档案各分区的读取与保存。
// 每个分区保存成功后推进引导流程指针（只前进，不回退）。
type ProfileHandler struct {
	store  *profile.Store
	logger *slog.Logger
}

// NewProfileHandler 构造档案处理器。
func NewProfileHandler(db *gorm.DB, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		store:  profile.NewStore(db),
		logger: logger,
	}
}

type personalInfoRequest struct {
	Name         string `json:"name" binding:"required,max=255"`
	Email        string `json:"email" binding:"omitempty,email,max=254"`
	Mobile       string `json:"mobile" binding:"max=32"`
	Location     string `json:"location" binding:"max=255"`
	LinkedinURL  string `json:"linkedin_url" binding:"max=512"`
	PortfolioURL string `json:"portfolio_url" binding:"max=512"`
}

type workExperienceItem struct {
	ID          uint   `json:"id"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

type educationItem struct {
	ID          uint   `json:"id"`
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
}

type projectItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type achievementItem struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type profileResponse struct {
	Name              string               `json:"name"`
	Email             string               `json:"email"`
	Mobile            string               `json:"mobile"`
	Location          string               `json:"location"`
	LinkedinURL       string               `json:"linkedin_url"`
	PortfolioURL      string               `json:"portfolio_url"`
	OnboardingSection string               `json:"onboarding_section"`
	WorkExperiences   []workExperienceItem `json:"work_experiences"`
	Educations        []educationItem      `json:"educations"`
	Skills            string               `json:"skills"`
	Projects          []projectItem        `json:"projects"`
	Achievements      []achievementItem    `json:"achievements"`
}

// GetProfile 返回用户档案的聚合视图。
// 档案尚未创建时返回空档案与流程起点，前端据此进入引导流程。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	prof, err := h.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, profileResponse{
				OnboardingSection: onboarding.First().String(),
				WorkExperiences:   []workExperienceItem{},
				Educations:        []educationItem{},
				Projects:          []projectItem{},
				Achievements:      []achievementItem{},
			})
			return
		}
		logger.Error("query profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	resp := profileResponse{
		Name:              prof.Name,
		Email:             prof.Email,
		Mobile:            prof.Mobile,
		Location:          prof.Location,
		LinkedinURL:       prof.LinkedinURL,
		PortfolioURL:      prof.PortfolioURL,
		OnboardingSection: prof.OnboardingSection,
		WorkExperiences:   []workExperienceItem{},
		Educations:        []educationItem{},
		Projects:          []projectItem{},
		Achievements:      []achievementItem{},
	}
	if resp.OnboardingSection == "" {
		resp.OnboardingSection = onboarding.First().String()
	}

	experiences, err := h.store.ListWorkExperiences(ctx, prof.ID)
	if err != nil {
		logger.Error("list work experiences failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	for _, row := range experiences {
		resp.WorkExperiences = append(resp.WorkExperiences, workExperienceItem{
			ID: row.ID, Company: row.Company, Position: row.Position,
			StartDate: row.StartDate, EndDate: row.EndDate, Description: row.Description,
		})
	}

	educations, err := h.store.ListEducations(ctx, prof.ID)
	if err != nil {
		logger.Error("list educations failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	for _, row := range educations {
		resp.Educations = append(resp.Educations, educationItem{
			ID: row.ID, Institution: row.Institution, Degree: row.Degree,
			StartDate: row.StartDate, EndDate: row.EndDate, Description: row.Description,
		})
	}

	skills, err := h.store.ListSkills(ctx, prof.ID)
	if err != nil {
		logger.Error("list skills failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	names := make([]string, 0, len(skills))
	for _, row := range skills {
		names = append(names, row.Name)
	}
	resp.Skills = profile.FlattenSkills(names)

	projects, err := h.store.ListProjects(ctx, prof.ID)
	if err != nil {
		logger.Error("list projects failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	for _, row := range projects {
		resp.Projects = append(resp.Projects, projectItem{
			ID: row.ID, Name: row.Name, Description: row.Description, URL: row.URL,
		})
	}

	achievements, err := h.store.ListAchievements(ctx, prof.ID)
	if err != nil {
		logger.Error("list achievements failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	for _, row := range achievements {
		resp.Achievements = append(resp.Achievements, achievementItem{
			ID: row.ID, Title: row.Title, Description: row.Description, Date: row.Date,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// SavePersonalInfo 保存个人信息分区。首次保存会创建档案行。
func (h *ProfileHandler) SavePersonalInfo(c *gin.Context) {
	var req personalInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(slog.Uint64("user_id", uint64(userID)))

	prof, err := h.store.UpsertPersonalInfo(ctx, userID, profile.PersonalInfo{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Location:     req.Location,
		LinkedinURL:  req.LinkedinURL,
		PortfolioURL: req.PortfolioURL,
	})
	if err != nil {
		logger.Error("save personal info failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.advanceOnboarding(ctx, prof, onboarding.SectionPersonal); err != nil {
		logger.Error("advance onboarding failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusOK)
}

type saveExperiencesRequest struct {
	WorkExperiences []workExperienceItem `json:"work_experiences"`
}

// SaveExperiences 保存工作经历分区（对账落库）。
func (h *ProfileHandler) SaveExperiences(c *gin.Context) {
	var req saveExperiencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	h.saveSection(c, onboarding.SectionExperience, func(ctx context.Context, prof *database.Profile) error {
		edited := make([]database.WorkExperience, 0, len(req.WorkExperiences))
		for _, item := range req.WorkExperiences {
			row := database.WorkExperience{
				Company:     item.Company,
				Position:    item.Position,
				StartDate:   item.StartDate,
				EndDate:     item.EndDate,
				Description: item.Description,
			}
			row.ID = item.ID
			edited = append(edited, row)
		}
		return h.store.SaveWorkExperiences(ctx, prof.ID, edited)
	})
}

type saveEducationsRequest struct {
	Educations []educationItem `json:"educations"`
}

// SaveEducations 保存教育经历分区（对账落库）。
func (h *ProfileHandler) SaveEducations(c *gin.Context) {
	var req saveEducationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	h.saveSection(c, onboarding.SectionEducation, func(ctx context.Context, prof *database.Profile) error {
		edited := make([]database.Education, 0, len(req.Educations))
		for _, item := range req.Educations {
			row := database.Education{
				Institution: item.Institution,
				Degree:      item.Degree,
				StartDate:   item.StartDate,
				EndDate:     item.EndDate,
				Description: item.Description,
			}
			row.ID = item.ID
			edited = append(edited, row)
		}
		return h.store.SaveEducations(ctx, prof.ID, edited)
	})
}

type saveSkillsRequest struct {
	Skills string `json:"skills"`
}

// SaveSkills 用展平字符串整体替换技能分区。
func (h *ProfileHandler) SaveSkills(c *gin.Context) {
	var req saveSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	h.saveSection(c, onboarding.SectionSkills, func(ctx context.Context, prof *database.Profile) error {
		return h.store.ReplaceSkills(ctx, prof.ID, req.Skills)
	})
}

type saveProjectsRequest struct {
	Projects     []projectItem     `json:"projects"`
	Achievements []achievementItem `json:"achievements"`
}

// SaveProjects 保存项目与成就分区（对账落库）。
func (h *ProfileHandler) SaveProjects(c *gin.Context) {
	var req saveProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	h.saveSection(c, onboarding.SectionProjects, func(ctx context.Context, prof *database.Profile) error {
		projects := make([]database.Project, 0, len(req.Projects))
		for _, item := range req.Projects {
			row := database.Project{
				Name:        item.Name,
				Description: item.Description,
				URL:         item.URL,
			}
			row.ID = item.ID
			projects = append(projects, row)
		}
		if err := h.store.SaveProjects(ctx, prof.ID, projects); err != nil {
			return err
		}

		achievements := make([]database.Achievement, 0, len(req.Achievements))
		for _, item := range req.Achievements {
			row := database.Achievement{
				Title:       item.Title,
				Description: item.Description,
				Date:        item.Date,
			}
			row.ID = item.ID
			achievements = append(achievements, row)
		}
		return h.store.SaveAchievements(ctx, prof.ID, achievements)
	})
}

// saveSection 是子表分区保存的公共骨架：
// 档案必须已存在（个人信息分区先行），保存成功后推进引导指针。
func (h *ProfileHandler) saveSection(c *gin.Context, section onboarding.Section, save func(ctx context.Context, prof *database.Profile) error) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c, h.logger).With(
		slog.Uint64("user_id", uint64(userID)),
		slog.String("section", section.String()),
	)

	prof, err := h.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			BadRequest(c, "complete personal info first")
			return
		}
		logger.Error("query profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := save(ctx, prof); err != nil {
		logger.Error("save profile section failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.advanceOnboarding(ctx, prof, section); err != nil {
		logger.Error("advance onboarding failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.Status(http.StatusOK)
}

// advanceOnboarding 在分区保存成功后推进流程指针。
// 指针只会前进：重新编辑早前的分区不会把用户拉回引导流程。
func (h *ProfileHandler) advanceOnboarding(ctx context.Context, prof *database.Profile, saved onboarding.Section) error {
	current := onboarding.First()
	if prof.OnboardingSection != "" {
		parsed, err := onboarding.Parse(prof.OnboardingSection)
		if err == nil {
			current = parsed
		}
	}

	next := onboarding.Advance(saved)
	if next <= current {
		return nil
	}
	return h.store.SetOnboardingSection(ctx, prof.ID, next.String())
}
