package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/services"
)

// stubCompleter is a canned ChatCompleter. It answers with the configured
// payload matching the prompt kind, so one stub serves every generator call.
type stubCompleter struct {
	roadmap  string
	material string
	quiz     string
	classify string
	answer   string
	err      error

	prompts []string
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	s.prompts = append(s.prompts, prompt)

	var content string
	switch {
	case strings.Contains(prompt, "learning roadmap"):
		content = s.roadmap
	case strings.Contains(prompt, "study material"):
		content = s.material
	case strings.Contains(prompt, "multiple-choice questions"):
		content = s.quiz
	case strings.Contains(prompt, "fixed vocabulary"):
		content = s.classify
	case strings.Contains(prompt, "ONLY from the material context"):
		content = s.answer
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func TestGenerateRoadmapUnfencesOutput(t *testing.T) {
	stub := &stubCompleter{
		roadmap: "```json\n{\"duration\":\"2 Months\",\"milestones\":[{\"timeframe\":\"Week 1\",\"topic\":\"Basics\",\"sub_tasks\":[\"Setup\",\"Syntax\"]}]}\n```",
	}
	gen := services.NewGeneratorWithClient(stub, "test-model")

	content, err := gen.GenerateRoadmap(context.Background(), "Golang", "")
	if err != nil {
		t.Fatalf("GenerateRoadmap failed: %v", err)
	}
	if content.Duration != "2 Months" {
		t.Errorf("Expected duration 2 Months, got %q", content.Duration)
	}
	if len(content.Milestones) != 1 || len(content.Milestones[0].SubTopics()) != 2 {
		t.Errorf("Unexpected milestone shape: %+v", content.Milestones)
	}
}

func TestGenerateRoadmapRejectsEmptyMilestones(t *testing.T) {
	gen := services.NewGeneratorWithClient(&stubCompleter{roadmap: `{"duration":"1 Month","milestones":[]}`}, "test-model")
	if _, err := gen.GenerateRoadmap(context.Background(), "Golang", ""); !errors.Is(err, services.ErrGeneration) {
		t.Errorf("Expected ErrGeneration for empty milestones, got %v", err)
	}
}

func TestGenerateRoadmapWrapsUpstreamFailure(t *testing.T) {
	gen := services.NewGeneratorWithClient(&stubCompleter{err: errors.New("rate limited")}, "test-model")
	if _, err := gen.GenerateRoadmap(context.Background(), "Golang", ""); !errors.Is(err, services.ErrGeneration) {
		t.Errorf("Expected ErrGeneration wrapping, got %v", err)
	}
}

func TestGenerateQuizGroundedAndClamped(t *testing.T) {
	stub := &stubCompleter{
		quiz: `[
			{"q":"Q1","choices":["a","b"],"answer":5},
			{"q":"Q2","choices":["a","b","c","d","e","f","g","h"],"answer":-3},
			{"q":"","choices":["a"],"answer":0},
			{"q":"Q3","choices":["a","b"],"answer":1},
			{"q":"Q4","choices":["a","b"],"answer":0},
			{"q":"Q5","choices":["a","b"],"answer":0},
			{"q":"Q6","choices":["a","b"],"answer":0}
		]`,
	}
	gen := services.NewGeneratorWithClient(stub, "test-model")

	materials := []models.Material{{Title: "Goroutines", Body: "Concurrency basics.", Points: []string{"go keyword"}}}
	questions, err := gen.GenerateQuiz(context.Background(), materials)
	if err != nil {
		t.Fatalf("GenerateQuiz failed: %v", err)
	}

	if len(questions) != 5 {
		t.Fatalf("Expected at most 5 questions, got %d", len(questions))
	}
	if questions[0].Answer != 1 {
		t.Errorf("Out-of-range answer should clamp to last choice, got %d", questions[0].Answer)
	}
	if questions[1].Answer != 0 {
		t.Errorf("Negative answer should clamp to 0, got %d", questions[1].Answer)
	}
	if len(questions[1].Choices) != 6 {
		t.Errorf("Choices should truncate to 6, got %d", len(questions[1].Choices))
	}

	// The material context must be in the prompt
	if len(stub.prompts) == 0 || !strings.Contains(stub.prompts[0], "Concurrency basics.") {
		t.Error("Quiz prompt does not carry the material context")
	}
}

func TestGenerateQuizEmptyMaterials(t *testing.T) {
	gen := services.NewGeneratorWithClient(&stubCompleter{}, "test-model")
	questions, err := gen.GenerateQuiz(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateQuiz failed: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("Expected no questions without materials, got %d", len(questions))
	}
}

func TestClassifyTopicsFiltersUnknownSlugs(t *testing.T) {
	stub := &stubCompleter{
		classify: `[
			{"slug":"backend","confidence":1.4},
			{"slug":"made-up","confidence":0.9},
			{"slug":"devops","confidence":-0.2}
		]`,
	}
	gen := services.NewGeneratorWithClient(stub, "test-model")

	vocabulary := []models.Topic{{Slug: "backend", Name: "Backend"}, {Slug: "devops", Name: "DevOps"}}
	matches, err := gen.ClassifyTopics(context.Background(), "Belajar Golang", models.RoadmapContent{
		Milestones: []models.Milestone{{Topic: "Basics"}},
	}, vocabulary)
	if err != nil {
		t.Fatalf("ClassifyTopics failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches after filtering, got %d", len(matches))
	}
	if matches[0].Slug != "backend" || matches[0].Confidence != 1 {
		t.Errorf("Expected backend clamped to 1, got %+v", matches[0])
	}
	if matches[1].Slug != "devops" || matches[1].Confidence != 0 {
		t.Errorf("Expected devops clamped to 0, got %+v", matches[1])
	}
}

func TestPrepareMaterialsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice")
	roadmap := createTestRoadmap(t, db, "alice", "Belajar Golang", testContent(2, 1))

	stub := &stubCompleter{material: `{"body":"Study text.","points":["remember this"]}`}
	gen := services.NewGeneratorWithClient(stub, "test-model")

	result, err := services.PrepareMaterials(context.Background(), db, gen, roadmap.ID, "alice")
	if err != nil {
		t.Fatalf("PrepareMaterials failed: %v", err)
	}
	if result.AlreadyPrepared || result.Count != 3 {
		t.Errorf("Expected 3 fresh materials, got %+v", result)
	}

	calls := len(stub.prompts)
	result, err = services.PrepareMaterials(context.Background(), db, gen, roadmap.ID, "alice")
	if err != nil {
		t.Fatalf("Repeated PrepareMaterials failed: %v", err)
	}
	if !result.AlreadyPrepared {
		t.Error("Second preparation should report alreadyPrepared")
	}
	if len(stub.prompts) != calls {
		t.Error("Second preparation must not call the generation service")
	}

	reloaded, err := services.GetOwnedRoadmap(db, roadmap.ID, "alice")
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	content, err := models.ParseContent(reloaded.Content)
	if err != nil {
		t.Fatalf("ParseContent failed: %v", err)
	}
	if len(content.MaterialsByMilestone) != 2 {
		t.Fatalf("Expected 2 milestone buckets, got %d", len(content.MaterialsByMilestone))
	}
	m := content.MaterialsByMilestone[0][1]
	if m.MilestoneIndex != 0 || m.SubIndex != 1 || m.Body != "Study text." {
		t.Errorf("Unexpected material: %+v", m)
	}
	if m.HeroImage == "" {
		t.Error("Expected a hero image URL")
	}
}
