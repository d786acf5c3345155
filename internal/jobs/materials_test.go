package jobs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/belajaryuk/roadmap-api/internal/jobs"
	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

// flakyCompleter fails a configured number of calls, then answers with a
// fixed material payload.
type flakyCompleter struct {
	mu        sync.Mutex
	failures  int
	callCount int
}

func (f *flakyCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.callCount <= f.failures {
		return openai.ChatCompletionResponse{}, context.DeadlineExceeded
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: `{"body":"Study text.","points":[]}`}},
		},
	}, nil
}

func setupWorkerDB(t *testing.T) (*gorm.DB, *models.Roadmap) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Roadmap{}, &models.RoadmapProgress{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := db.Create(&models.User{ID: "alice", Email: "alice@example.com"}).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	content := map[string]interface{}{
		"milestones": []interface{}{
			map[string]interface{}{"timeframe": "Week 1", "topic": "Basics", "sub_tasks": []string{"Setup"}},
		},
	}
	roadmap, _, err := services.CreateRoadmap(db, "alice", "Belajar Golang", content)
	if err != nil {
		t.Fatalf("Failed to create roadmap: %v", err)
	}
	return db, roadmap
}

// waitPrepared polls until the roadmap's materials exist or the deadline hits.
func waitPrepared(t *testing.T, db *gorm.DB, roadmapID string, deadline time.Duration) bool {
	t.Helper()
	timeout := time.After(deadline)
	for {
		select {
		case <-timeout:
			return false
		case <-time.After(20 * time.Millisecond):
			roadmap, err := services.GetOwnedRoadmap(db, roadmapID, "alice")
			if err != nil {
				t.Fatalf("Reload failed: %v", err)
			}
			content, err := models.ParseContent(roadmap.Content)
			if err != nil {
				t.Fatalf("ParseContent failed: %v", err)
			}
			if content.MaterialsByMilestone != nil {
				return true
			}
		}
	}
}

func TestWorkerPreparesMaterials(t *testing.T) {
	db, roadmap := setupWorkerDB(t)
	gen := services.NewGeneratorWithClient(&flakyCompleter{}, "test-model")

	worker := jobs.NewMaterialsWorker(db, gen, 4, 0)
	worker.Start()
	defer worker.Stop()

	if !worker.Enqueue(roadmap.ID, "alice") {
		t.Fatal("Enqueue rejected on an empty queue")
	}
	if !waitPrepared(t, db, roadmap.ID, 2*time.Second) {
		t.Fatal("Materials were not prepared in time")
	}
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	db, roadmap := setupWorkerDB(t)
	completer := &flakyCompleter{failures: 1}
	gen := services.NewGeneratorWithClient(completer, "test-model")

	worker := jobs.NewMaterialsWorker(db, gen, 4, 2)
	worker.Start()
	defer worker.Stop()

	worker.Enqueue(roadmap.ID, "alice")

	// First attempt fails, the retry after ~1s succeeds
	if !waitPrepared(t, db, roadmap.ID, 5*time.Second) {
		t.Fatal("Materials were not prepared after retry")
	}
}

func TestWorkerGivesUpAfterMaxRetries(t *testing.T) {
	db, roadmap := setupWorkerDB(t)
	gen := services.NewGeneratorWithClient(&flakyCompleter{failures: 100}, "test-model")

	worker := jobs.NewMaterialsWorker(db, gen, 4, 0)
	worker.Start()
	defer worker.Stop()

	worker.Enqueue(roadmap.ID, "alice")
	if waitPrepared(t, db, roadmap.ID, 500*time.Millisecond) {
		t.Fatal("Materials should not have been prepared")
	}

	// The slot is released after giving up, so a manual retry can re-enter
	deadline := time.After(2 * time.Second)
	for !worker.Enqueue(roadmap.ID, "alice") {
		select {
		case <-deadline:
			t.Fatal("Roadmap never released from the inflight set")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestWorkerDeduplicatesInflight(t *testing.T) {
	db, roadmap := setupWorkerDB(t)
	gen := services.NewGeneratorWithClient(&flakyCompleter{failures: 100}, "test-model")

	// Not started: jobs stay queued
	worker := jobs.NewMaterialsWorker(db, gen, 4, 3)

	if !worker.Enqueue(roadmap.ID, "alice") {
		t.Fatal("First enqueue rejected")
	}
	if worker.Enqueue(roadmap.ID, "alice") {
		t.Error("Duplicate enqueue for the same roadmap must be rejected")
	}
}
