package profile

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumegenius/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// 内存库绑定单个连接，避免连接池拿到不同的空库。
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUpsertPersonalInfoCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	created, err := store.UpsertPersonalInfo(ctx, 1, PersonalInfo{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Mobile: "555-0100",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected profile row to be created")
	}

	updated, err := store.UpsertPersonalInfo(ctx, 1, PersonalInfo{
		Name:     "Jane Doe",
		Location: "Bengaluru",
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("upsert must reuse profile row, got %d and %d", created.ID, updated.ID)
	}

	got, err := store.GetByUserID(ctx, 1)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got.Location != "Bengaluru" {
		t.Errorf("expected location updated, got %q", got.Location)
	}
	if got.Email != "jane@example.com" {
		t.Errorf("blank email must not clobber stored value, got %q", got.Email)
	}
}

func TestSaveWorkExperiencesReconciles(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	prof, err := store.UpsertPersonalInfo(ctx, 1, PersonalInfo{Name: "Jane Doe"})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	initial := []database.WorkExperience{
		{Company: "Acme", Position: "Engineer"},
		{Company: "Globex", Position: "Manager"},
	}
	if err := store.SaveWorkExperiences(ctx, prof.ID, initial); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	rows, err := store.ListWorkExperiences(ctx, prof.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// 更新一行、删除一行、新增一行。
	edited := []database.WorkExperience{
		rows[0],
		{Company: "Hooli", Position: "Developer"},
	}
	edited[0].Position = "Senior Engineer"
	if err := store.SaveWorkExperiences(ctx, prof.ID, edited); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rows, err = store.ListWorkExperiences(ctx, prof.ID)
	if err != nil {
		t.Fatalf("list after save: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after reconcile, got %d", len(rows))
	}
	byCompany := map[string]database.WorkExperience{}
	for _, r := range rows {
		byCompany[r.Company] = r
	}
	if byCompany["Acme"].Position != "Senior Engineer" {
		t.Errorf("expected Acme position updated, got %q", byCompany["Acme"].Position)
	}
	if _, ok := byCompany["Globex"]; ok {
		t.Error("Globex should have been deleted")
	}
	if _, ok := byCompany["Hooli"]; !ok {
		t.Error("Hooli should have been inserted")
	}
}

func TestReplaceSkillsOverwritesSet(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	prof, err := store.UpsertPersonalInfo(ctx, 1, PersonalInfo{Name: "Jane Doe"})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}

	if err := store.ReplaceSkills(ctx, prof.ID, "Go, Redis, go"); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	skills, err := store.ListSkills(ctx, prof.ID)
	if err != nil {
		t.Fatalf("list skills: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("expected case-insensitive dedupe to 2 skills, got %d", len(skills))
	}

	if err := store.ReplaceSkills(ctx, prof.ID, "Postgres"); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	skills, err = store.ListSkills(ctx, prof.ID)
	if err != nil {
		t.Fatalf("list skills: %v", err)
	}
	if len(skills) != 1 || skills[0].Name != "Postgres" {
		t.Fatalf("expected full replacement, got %+v", skills)
	}
}

func TestLoadSnapshotAggregatesProfile(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t))

	prof, err := store.UpsertPersonalInfo(ctx, 1, PersonalInfo{
		Name:  "Jane Doe",
		Email: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := store.SaveWorkExperiences(ctx, prof.ID, []database.WorkExperience{
		{Company: "Acme", Position: "Engineer"},
	}); err != nil {
		t.Fatalf("save experiences: %v", err)
	}
	if err := store.ReplaceSkills(ctx, prof.ID, "Go, Redis"); err != nil {
		t.Fatalf("save skills: %v", err)
	}

	snapshot, err := store.LoadSnapshot(ctx, 1)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snapshot.Name != "Jane Doe" {
		t.Errorf("unexpected snapshot name %q", snapshot.Name)
	}
	if len(snapshot.Experience) != 1 {
		t.Errorf("expected 1 experience, got %d", len(snapshot.Experience))
	}
	if len(snapshot.Skills) != 2 {
		t.Errorf("expected 2 skills, got %d", len(snapshot.Skills))
	}
}

func TestLoadSnapshotMissingProfile(t *testing.T) {
	store := NewStore(newTestDB(t))
	if _, err := store.LoadSnapshot(context.Background(), 42); err == nil {
		t.Fatal("expected error for missing profile")
	}
}
