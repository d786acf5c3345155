package services_test

import (
	"context"
	"testing"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

func TestClassifyRoadmapWritesLinks(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	for _, topic := range []models.Topic{
		{Slug: "backend", Name: "Backend"},
		{Slug: "devops", Name: "DevOps"},
		{Slug: "frontend", Name: "Frontend"},
	} {
		if err := db.Create(&topic).Error; err != nil {
			t.Fatalf("Failed to seed topic: %v", err)
		}
	}

	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	stub := &stubCompleter{classify: `[{"slug":"backend","confidence":0.9},{"slug":"devops","confidence":0.4}]`}
	gen := services.NewGeneratorWithClient(stub, "test-model")

	services.ClassifyRoadmap(context.Background(), db, gen, roadmap)

	var links []models.RoadmapTopic
	if err := db.Where("roadmap_id = ?", roadmap.ID).Order("confidence DESC").Find(&links).Error; err != nil {
		t.Fatalf("Failed to load links: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("Expected 2 topic links, got %d", len(links))
	}
	if !links[0].IsPrimary || links[1].IsPrimary {
		t.Error("Strongest match should be the only primary link")
	}

	// Re-classification replaces, not appends
	stub.classify = `[{"slug":"frontend","confidence":0.8}]`
	services.ClassifyRoadmap(context.Background(), db, gen, roadmap)

	if err := db.Where("roadmap_id = ?", roadmap.ID).Find(&links).Error; err != nil {
		t.Fatalf("Failed to reload links: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("Expected links to be replaced, got %d rows", len(links))
	}
}

func TestClassifyRoadmapSwallowsFailures(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	if err := db.Create(&models.Topic{Slug: "backend", Name: "Backend"}).Error; err != nil {
		t.Fatalf("Failed to seed topic: %v", err)
	}
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	gen := services.NewGeneratorWithClient(&stubCompleter{err: errContextual}, "test-model")
	services.ClassifyRoadmap(context.Background(), db, gen, roadmap)

	var count int64
	db.Model(&models.RoadmapTopic{}).Where("roadmap_id = ?", roadmap.ID).Count(&count)
	if count != 0 {
		t.Errorf("Failed classification must leave no links, got %d", count)
	}
}

func TestListTopicsAlphabetical(t *testing.T) {
	db := setupTestDB(t)
	for _, topic := range []models.Topic{
		{Slug: "devops", Name: "DevOps"},
		{Slug: "backend", Name: "Backend"},
	} {
		if err := db.Create(&topic).Error; err != nil {
			t.Fatalf("Failed to seed topic: %v", err)
		}
	}

	topics, err := services.ListTopics(db)
	if err != nil {
		t.Fatalf("ListTopics failed: %v", err)
	}
	if len(topics) != 2 || topics[0].Name != "Backend" {
		t.Errorf("Expected alphabetical order, got %+v", topics)
	}
}
