package helpers

import (
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

// CreateTestUser inserts a user row mirroring the identity provider's table
func CreateTestUser(t *testing.T, db *gorm.DB, id string) {
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

// BuildContent assembles a roadmap content document with one milestone per
// entry, each holding that many sub-topics.
func BuildContent(subCounts ...int) map[string]interface{} {
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

// CompleteAllTasks marks every checklist sub-task done
func CompleteAllTasks(t *testing.T, db *gorm.DB, roadmap *models.Roadmap, userID string) {
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
	if _, err := services.UpdateTasks(db, roadmap.ID, userID, updates); err != nil {
		t.Fatalf("Failed to complete tasks: %v", err)
	}
}
