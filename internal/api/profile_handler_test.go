package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"resumegenius/internal/database"
)

func TestSavePersonalInfoAdvancesOnboarding(t *testing.T) {
	db := newTestDB(t)
	h := NewProfileHandler(db, nil)

	c, w := newJSONContext(t, http.MethodPut, "/v1/profile/personal", gin.H{
		"name":   "Jane Doe",
		"email":  "jane@example.com",
		"mobile": "555-0100",
	}, 1)
	h.SavePersonalInfo(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var prof database.Profile
	if err := db.Where("user_id = ?", 1).First(&prof).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if prof.Name != "Jane Doe" {
		t.Errorf("unexpected name %q", prof.Name)
	}
	if prof.OnboardingSection != "experience" {
		t.Errorf("expected pointer at experience, got %q", prof.OnboardingSection)
	}
}

func TestOnboardingPointerNeverRegresses(t *testing.T) {
	db := newTestDB(t)
	h := NewProfileHandler(db, nil)

	c, _ := newJSONContext(t, http.MethodPut, "/v1/profile/personal", gin.H{"name": "Jane Doe"}, 1)
	h.SavePersonalInfo(c)

	c, w := newJSONContext(t, http.MethodPut, "/v1/profile/skills", gin.H{"skills": "Go, Redis"}, 1)
	h.SaveSkills(c)
	if w.Code != http.StatusOK {
		t.Fatalf("save skills: %d body=%s", w.Code, w.Body.String())
	}

	// 回头重新编辑个人信息，指针不应回退。
	c, w = newJSONContext(t, http.MethodPut, "/v1/profile/personal", gin.H{"name": "Jane D."}, 1)
	h.SavePersonalInfo(c)
	if w.Code != http.StatusOK {
		t.Fatalf("re-save personal: %d body=%s", w.Code, w.Body.String())
	}

	var prof database.Profile
	if err := db.Where("user_id = ?", 1).First(&prof).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if prof.OnboardingSection != "projects" {
		t.Errorf("expected pointer to stay at projects, got %q", prof.OnboardingSection)
	}
}

func TestSaveSectionRequiresProfile(t *testing.T) {
	db := newTestDB(t)
	h := NewProfileHandler(db, nil)

	c, w := newJSONContext(t, http.MethodPut, "/v1/profile/skills", gin.H{"skills": "Go"}, 1)
	h.SaveSkills(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before personal info saved, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestGetProfileEmptyReturnsFlowStart(t *testing.T) {
	db := newTestDB(t)
	h := NewProfileHandler(db, nil)

	c, w := newJSONContext(t, http.MethodGet, "/v1/profile", nil, 1)
	h.GetProfile(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		OnboardingSection string `json:"onboarding_section"`
		Skills            string `json:"skills"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.OnboardingSection != "personal" {
		t.Errorf("expected flow start personal, got %q", resp.OnboardingSection)
	}
}

func TestGetProfileAggregatesSections(t *testing.T) {
	db := newTestDB(t)
	h := NewProfileHandler(db, nil)

	c, _ := newJSONContext(t, http.MethodPut, "/v1/profile/personal", gin.H{"name": "Jane Doe"}, 1)
	h.SavePersonalInfo(c)

	c, w := newJSONContext(t, http.MethodPut, "/v1/profile/experience", gin.H{
		"work_experiences": []gin.H{
			{"company": "Acme", "position": "Engineer"},
		},
	}, 1)
	h.SaveExperiences(c)
	if w.Code != http.StatusOK {
		t.Fatalf("save experiences: %d body=%s", w.Code, w.Body.String())
	}

	c, _ = newJSONContext(t, http.MethodPut, "/v1/profile/skills", gin.H{"skills": "Go, Redis"}, 1)
	h.SaveSkills(c)

	c, w = newJSONContext(t, http.MethodGet, "/v1/profile", nil, 1)
	h.GetProfile(c)
	if w.Code != http.StatusOK {
		t.Fatalf("get profile: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Name            string `json:"name"`
		Skills          string `json:"skills"`
		WorkExperiences []struct {
			Company string `json:"company"`
		} `json:"work_experiences"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Name != "Jane Doe" {
		t.Errorf("unexpected name %q", resp.Name)
	}
	if resp.Skills != "Go, Redis" {
		t.Errorf("unexpected skills %q", resp.Skills)
	}
	if len(resp.WorkExperiences) != 1 || resp.WorkExperiences[0].Company != "Acme" {
		t.Errorf("unexpected experiences %+v", resp.WorkExperiences)
	}
}
