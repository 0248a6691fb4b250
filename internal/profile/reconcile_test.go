package profile

import (
	"testing"

	"resumegenius/internal/database"
)

func experience(id uint, company, position string) database.WorkExperience {
	row := database.WorkExperience{Company: company, Position: position}
	row.ID = id
	return row
}

func buildExperiencePlan(existing, edited []database.WorkExperience) Plan[database.WorkExperience] {
	return BuildPlan(existing, edited,
		func(r database.WorkExperience) uint { return r.ID },
		func(r database.WorkExperience) bool { return r.Company != "" && r.Position != "" },
	)
}

func TestBuildPlanClassifiesRows(t *testing.T) {
	existing := []database.WorkExperience{
		experience(1, "Acme", "Engineer"),
		experience(2, "Globex", "Manager"),
		experience(3, "Initech", "Analyst"),
	}
	edited := []database.WorkExperience{
		experience(1, "Acme Corp", "Senior Engineer"), // 更新
		experience(0, "Hooli", "Developer"),           // 插入
		// ID 2 消失 -> 删除；ID 3 未提交 -> 删除
	}

	plan := buildExperiencePlan(existing, edited)

	if len(plan.Inserts) != 1 || plan.Inserts[0].Company != "Hooli" {
		t.Fatalf("expected one insert for Hooli, got %+v", plan.Inserts)
	}
	if len(plan.Updates) != 1 || plan.Updates[0].ID != 1 {
		t.Fatalf("expected one update for ID 1, got %+v", plan.Updates)
	}
	if len(plan.DeleteIDs) != 2 {
		t.Fatalf("expected two deletes, got %v", plan.DeleteIDs)
	}
	deleted := map[uint]bool{}
	for _, id := range plan.DeleteIDs {
		deleted[id] = true
	}
	if !deleted[2] || !deleted[3] {
		t.Fatalf("expected IDs 2 and 3 deleted, got %v", plan.DeleteIDs)
	}
}

func TestBuildPlanDropsIncompleteInserts(t *testing.T) {
	edited := []database.WorkExperience{
		experience(0, "", ""),
		experience(0, "OnlyCompany", ""),
	}

	plan := buildExperiencePlan(nil, edited)
	if !plan.Empty() {
		t.Fatalf("incomplete new rows should produce no operations, got %+v", plan)
	}
}

func TestBuildPlanDeletesClearedRows(t *testing.T) {
	existing := []database.WorkExperience{experience(7, "Acme", "Engineer")}
	edited := []database.WorkExperience{experience(7, "", "")}

	plan := buildExperiencePlan(existing, edited)
	if len(plan.Updates) != 0 || len(plan.Inserts) != 0 {
		t.Fatalf("cleared row should not update or insert, got %+v", plan)
	}
	if len(plan.DeleteIDs) != 1 || plan.DeleteIDs[0] != 7 {
		t.Fatalf("cleared row with ID should be deleted once, got %v", plan.DeleteIDs)
	}
}

func TestBuildPlanOneOperationPerRow(t *testing.T) {
	existing := []database.WorkExperience{
		experience(1, "Acme", "Engineer"),
		experience(2, "Globex", "Manager"),
	}
	edited := []database.WorkExperience{
		experience(1, "Acme", "Engineer"),
		experience(2, "", ""),
		experience(0, "Hooli", "Developer"),
	}

	plan := buildExperiencePlan(existing, edited)
	total := len(plan.Inserts) + len(plan.Updates) + len(plan.DeleteIDs)
	if total != 3 {
		t.Fatalf("expected exactly 3 operations (update, delete, insert), got %d: %+v", total, plan)
	}
}

func TestBuildPlanEmptyInputs(t *testing.T) {
	if plan := buildExperiencePlan(nil, nil); !plan.Empty() {
		t.Fatalf("empty inputs should yield empty plan, got %+v", plan)
	}
}
