package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/belajaryuk/roadmap-api/internal/services"
)

func TestAskTutorAnswersFromMaterial(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(2))

	stub := &stubCompleter{
		material: `{"body":"Goroutines are lightweight threads managed by the runtime.","points":["go keyword"]}`,
		answer:   "A goroutine is started with the go keyword.",
	}
	gen := services.NewGeneratorWithClient(stub, "test-model")
	if _, err := services.PrepareMaterials(context.Background(), db, gen, roadmap.ID, "alice"); err != nil {
		t.Fatalf("Failed to prepare materials: %v", err)
	}

	history := []services.ChatTurn{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hello, what would you like to know?"},
	}
	answer, err := services.AskTutor(context.Background(), db, gen, roadmap.ID, "alice", 0, 0,
		"How do I start a goroutine?", history)
	if err != nil {
		t.Fatalf("AskTutor failed: %v", err)
	}
	if answer != "A goroutine is started with the go keyword." {
		t.Errorf("Unexpected answer: %q", answer)
	}

	// The prompt carries the material and the prior turns, nothing invented
	last := stub.prompts[len(stub.prompts)-1]
	if !strings.Contains(last, "lightweight threads managed by the runtime") {
		t.Error("Material body missing from the tutor prompt")
	}
	if !strings.Contains(last, "User: Hi") || !strings.Contains(last, "Assistant: Hello") {
		t.Error("Conversation history missing from the tutor prompt")
	}
	if !strings.Contains(last, "How do I start a goroutine?") {
		t.Error("Question missing from the tutor prompt")
	}
}

func TestAskTutorCapsHistory(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	stub := &stubCompleter{
		material: `{"body":"Body text.","points":[]}`,
		answer:   "Answer.",
	}
	gen := services.NewGeneratorWithClient(stub, "test-model")
	if _, err := services.PrepareMaterials(context.Background(), db, gen, roadmap.ID, "alice"); err != nil {
		t.Fatalf("Failed to prepare materials: %v", err)
	}

	var history []services.ChatTurn
	for i := 0; i < 10; i++ {
		history = append(history, services.ChatTurn{Role: "user", Content: fmt.Sprintf("turn %d", i)})
	}
	if _, err := services.AskTutor(context.Background(), db, gen, roadmap.ID, "alice", 0, 0, "Question?", history); err != nil {
		t.Fatalf("AskTutor failed: %v", err)
	}

	last := stub.prompts[len(stub.prompts)-1]
	if strings.Contains(last, "turn 3") {
		t.Error("History older than six turns leaked into the prompt")
	}
	if !strings.Contains(last, "turn 4") || !strings.Contains(last, "turn 9") {
		t.Error("Recent history missing from the prompt")
	}
}

func TestAskTutorClampsIndices(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	stub := &stubCompleter{
		material: `{"body":"Only material.","points":[]}`,
		answer:   "Answer.",
	}
	gen := services.NewGeneratorWithClient(stub, "test-model")
	if _, err := services.PrepareMaterials(context.Background(), db, gen, roadmap.ID, "alice"); err != nil {
		t.Fatalf("Failed to prepare materials: %v", err)
	}

	// Way out of range still lands on the last prepared unit
	if _, err := services.AskTutor(context.Background(), db, gen, roadmap.ID, "alice", 7, 9, "Question?", nil); err != nil {
		t.Fatalf("AskTutor with out-of-range indices failed: %v", err)
	}
	last := stub.prompts[len(stub.prompts)-1]
	if !strings.Contains(last, "Only material.") {
		t.Error("Clamped indices did not resolve to the prepared material")
	}
}

func TestAskTutorValidation(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))
	gen := services.NewGeneratorWithClient(&stubCompleter{answer: "Answer."}, "test-model")

	// Blank question
	if _, err := services.AskTutor(context.Background(), db, gen, roadmap.ID, "alice", 0, 0, "   ", nil); !errors.Is(err, services.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a blank question, got %v", err)
	}

	// Nothing prepared yet
	if _, err := services.AskTutor(context.Background(), db, gen, roadmap.ID, "alice", 0, 0, "Question?", nil); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Expected ErrNotFound without prepared materials, got %v", err)
	}

	// Not the owner
	if _, err := services.AskTutor(context.Background(), db, gen, roadmap.ID, "bob", 0, 0, "Question?", nil); !errors.Is(err, services.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a non-owner, got %v", err)
	}
}

func TestAskTutorWrapsUpstreamFailure(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(1))

	okStub := &stubCompleter{material: `{"body":"Body.","points":[]}`}
	gen := services.NewGeneratorWithClient(okStub, "test-model")
	if _, err := services.PrepareMaterials(context.Background(), db, gen, roadmap.ID, "alice"); err != nil {
		t.Fatalf("Failed to prepare materials: %v", err)
	}

	failing := services.NewGeneratorWithClient(&stubCompleter{err: errContextual}, "test-model")
	if _, err := services.AskTutor(context.Background(), db, failing, roadmap.ID, "alice", 0, 0, "Question?", nil); !errors.Is(err, services.ErrGeneration) {
		t.Errorf("Expected ErrGeneration wrapping, got %v", err)
	}
}
