package services_test

import (
	"errors"
	"testing"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

func TestCreateRoadmapDeduplicatesRetries(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")

	content := testContent(2, 3)
	first, deduped, err := services.CreateRoadmap(db, "alice", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	if deduped {
		t.Error("First create reported deduped")
	}
	if first.Progress == nil || first.Progress.Percent != 0 {
		t.Error("Expected an empty progress row on creation")
	}

	second, deduped, err := services.CreateRoadmap(db, "alice", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("Retried create failed: %v", err)
	}
	if !deduped {
		t.Error("Identical retry was not deduplicated")
	}
	if second.ID != first.ID {
		t.Errorf("Dedup returned a different roadmap: %s vs %s", second.ID, first.ID)
	}

	var count int64
	db.Model(&models.Roadmap{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 roadmap row, got %d", count)
	}
}

func TestCreateRoadmapDedupIsPerUser(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	content := testContent(2)
	a, _, err := services.CreateRoadmap(db, "alice", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("Create for alice failed: %v", err)
	}
	b, deduped, err := services.CreateRoadmap(db, "bob", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("Create for bob failed: %v", err)
	}
	if deduped {
		t.Error("Another user's identical submission must not deduplicate")
	}
	if a.ID == b.ID {
		t.Error("Users received the same roadmap row")
	}
}

func TestCreateRoadmapDistinguishesContent(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")

	first, _, err := services.CreateRoadmap(db, "alice", "Belajar Golang", testContent(2))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, deduped, err := services.CreateRoadmap(db, "alice", "Belajar Golang", testContent(3))
	if err != nil {
		t.Fatalf("Create with changed content failed: %v", err)
	}
	if deduped {
		t.Error("Changed content must not deduplicate")
	}
	if first.ID == second.ID {
		t.Error("Different content returned the same roadmap")
	}
}

func TestCreateRoadmapRejectsEmptyTitle(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")

	_, _, err := services.CreateRoadmap(db, "alice", "", testContent(1))
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestGetOwnedRoadmapEnforcesOwnership(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(2))

	if _, err := services.GetOwnedRoadmap(db, roadmap.ID, "bob"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for non-owner, got %v", err)
	}
	if _, err := services.GetOwnedRoadmap(db, roadmap.ID, "alice"); err != nil {
		t.Errorf("Owner fetch failed: %v", err)
	}
}

func TestDeleteRoadmapCascades(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))
	publishTestRoadmap(t, db, roadmap, "alice")

	if err := services.SaveRoadmap(db, roadmap.ID, "bob"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := services.RateRoadmap(db, roadmap.ID, "bob", 4); err != nil {
		t.Fatalf("Rate failed: %v", err)
	}

	if err := services.DeleteRoadmap(db, roadmap.ID, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	for name, model := range map[string]interface{}{
		"progress":   &models.RoadmapProgress{},
		"saves":      &models.RoadmapSave{},
		"ratings":    &models.RoadmapRating{},
		"aggregates": &models.RoadmapAggregates{},
	} {
		var count int64
		db.Model(model).Where("roadmap_id = ?", roadmap.ID).Count(&count)
		if count != 0 {
			t.Errorf("Expected %s rows to cascade, found %d", name, count)
		}
	}
	if _, err := services.GetOwnedRoadmap(db, roadmap.ID, "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Deleted roadmap still retrievable: %v", err)
	}
}

func TestForkRoadmap(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	source := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	// Unpublished sources are invisible to forkers
	if _, err := services.ForkRoadmap(db, source.ID, "bob"); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unpublished source, got %v", err)
	}

	publishTestRoadmap(t, db, source, "alice")

	// Owners cannot fork their own roadmap
	if _, err := services.ForkRoadmap(db, source.ID, "alice"); !errors.Is(err, services.ErrOwnRoadmap) {
		t.Errorf("Expected ErrOwnRoadmap, got %v", err)
	}

	clone, err := services.ForkRoadmap(db, source.ID, "bob")
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}
	if clone.SourceID == nil || *clone.SourceID != source.ID {
		t.Error("Clone does not reference its source")
	}
	if clone.Published {
		t.Error("Clone must start unpublished")
	}
	if clone.Progress == nil || clone.Progress.Percent != 0 {
		t.Error("Clone must start with empty progress")
	}

	// Source fork count is maintained in the same transaction
	var aggregates models.RoadmapAggregates
	if err := db.Where("roadmap_id = ?", source.ID).First(&aggregates).Error; err != nil {
		t.Fatalf("Missing aggregates for source: %v", err)
	}
	if aggregates.ForksCount != 1 {
		t.Errorf("Expected forksCount 1, got %d", aggregates.ForksCount)
	}

	// A repeated fork returns the existing clone
	again, err := services.ForkRoadmap(db, source.ID, "bob")
	if err != nil {
		t.Fatalf("Repeated fork failed: %v", err)
	}
	if again.ID != clone.ID {
		t.Errorf("Repeated fork produced a new clone: %s vs %s", again.ID, clone.ID)
	}
}

func TestSaveRoadmap(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	if err := services.SaveRoadmap(db, roadmap.ID, "bob"); !errors.Is(err, services.ErrNotPublished) {
		t.Errorf("Expected ErrNotPublished, got %v", err)
	}

	publishTestRoadmap(t, db, roadmap, "alice")

	if err := services.SaveRoadmap(db, roadmap.ID, "alice"); !errors.Is(err, services.ErrOwnRoadmap) {
		t.Errorf("Expected ErrOwnRoadmap for self-save, got %v", err)
	}

	if err := services.SaveRoadmap(db, roadmap.ID, "bob"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Saving twice is a no-op, not a duplicate
	if err := services.SaveRoadmap(db, roadmap.ID, "bob"); err != nil {
		t.Fatalf("Repeated save failed: %v", err)
	}

	var count int64
	db.Model(&models.RoadmapSave{}).Where("roadmap_id = ?", roadmap.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 save row, got %d", count)
	}

	var aggregates models.RoadmapAggregates
	if err := db.Where("roadmap_id = ?", roadmap.ID).First(&aggregates).Error; err != nil {
		t.Fatalf("Missing aggregates: %v", err)
	}
	if aggregates.SavesCount != 1 {
		t.Errorf("Expected savesCount 1, got %d", aggregates.SavesCount)
	}
}

func TestCreateRoadmapAfterForkStaysFresh(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	content := testContent(2)
	source := createTestRoadmap(t, db, "alice", "Belajar Golang", content)
	publishTestRoadmap(t, db, source, "alice")

	clone, err := services.ForkRoadmap(db, source.ID, "bob")
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}

	// Saving an identical roadmap of one's own must yield a publishable
	// draft, not the fork bob already holds
	draft, deduped, err := services.CreateRoadmap(db, "bob", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("Create after fork failed: %v", err)
	}
	if deduped {
		t.Fatal("Fresh create after fork reported deduped")
	}
	if draft.ID == clone.ID {
		t.Fatal("Create returned the fork instead of a new draft")
	}
	if draft.SourceID != nil {
		t.Errorf("Draft should have no source, got %v", draft.SourceID)
	}

	// A retried save now dedups onto the draft, never the fork
	again, deduped, err := services.CreateRoadmap(db, "bob", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("Retried create failed: %v", err)
	}
	if !deduped || again.ID != draft.ID {
		t.Errorf("Expected dedup onto the draft %s, got deduped=%v id=%s", draft.ID, deduped, again.ID)
	}

	// Draft and fork coexist in bob's library
	var count int64
	db.Model(&models.Roadmap{}).Where("user_id = ?", "bob").Count(&count)
	if count != 2 {
		t.Errorf("Expected bob to hold draft and fork, got %d roadmaps", count)
	}
}
