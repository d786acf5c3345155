package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

// errContextual stands in for any upstream failure in stubbed calls
var errContextual = errors.New("upstream unavailable")

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Roadmap{},
		&models.RoadmapProgress{},
		&models.RoadmapSave{},
		&models.RoadmapRating{},
		&models.RoadmapAggregates{},
		&models.Topic{},
		&models.RoadmapTopic{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// createTestUser inserts a user row mirroring the identity provider's table
func createTestUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	user := models.User{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@example.com",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", id, err)
	}
}

// testContent builds a small roadmap content document: milestones with the
// given sub-topic counts.
func testContent(subCounts ...int) map[string]interface{} {
	milestones := make([]interface{}, len(subCounts))
	for i, n := range subCounts {
		subs := make([]string, n)
		for j := range subs {
			subs[j] = fmt.Sprintf("Sub %d.%d", i, j)
		}
		milestones[i] = map[string]interface{}{
			"timeframe": fmt.Sprintf("Week %d", i+1),
			"topic":     fmt.Sprintf("Milestone %d", i),
			"sub_tasks": subs,
		}
	}
	return map[string]interface{}{
		"duration":   "1 Month",
		"milestones": milestones,
	}
}

// createTestRoadmap creates a draft roadmap for the user and returns it
func createTestRoadmap(t *testing.T, db *gorm.DB, userID, title string, content map[string]interface{}) *models.Roadmap {
	t.Helper()
	roadmap, deduped, err := services.CreateRoadmap(db, userID, title, content)
	if err != nil {
		t.Fatalf("Failed to create roadmap %q: %v", title, err)
	}
	if deduped {
		t.Fatalf("Fresh roadmap %q unexpectedly deduplicated", title)
	}
	return roadmap
}

// completeAllTasks marks every checklist sub-task done so the roadmap becomes
// publishable.
func completeAllTasks(t *testing.T, db *gorm.DB, roadmap *models.Roadmap, userID string) {
	t.Helper()
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		t.Fatalf("Failed to parse content: %v", err)
	}
	var updates []services.TaskUpdate
	for mi, m := range content.Milestones {
		for ti := range m.SubTopics() {
			updates = append(updates, services.TaskUpdate{MilestoneIndex: mi, TaskIndex: ti, Done: true})
		}
	}
	progress, err := services.UpdateTasks(db, roadmap.ID, userID, updates)
	if err != nil {
		t.Fatalf("Failed to complete tasks: %v", err)
	}
	if progress.Percent != 100 {
		t.Fatalf("Expected 100%% after completing every task, got %d%%", progress.Percent)
	}
}

// mustAggregates loads a roadmap's aggregate row or fails the test
func mustAggregates(t *testing.T, db *gorm.DB, roadmapID string) models.RoadmapAggregates {
	t.Helper()
	var aggregates models.RoadmapAggregates
	if err := db.Where("roadmap_id = ?", roadmapID).First(&aggregates).Error; err != nil {
		t.Fatalf("Missing aggregates for %s: %v", roadmapID, err)
	}
	return aggregates
}

// publishTestRoadmap completes and publishes a roadmap
func publishTestRoadmap(t *testing.T, db *gorm.DB, roadmap *models.Roadmap, userID string) *models.Roadmap {
	t.Helper()
	completeAllTasks(t, db, roadmap, userID)
	published, err := services.SetPublished(db, roadmap.ID, userID, true)
	if err != nil {
		t.Fatalf("Failed to publish roadmap: %v", err)
	}
	return published
}
