package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/belajaryuk/roadmap-api/internal/config"
	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/sashabaranov/go-openai"
)

// ChatCompleter is the slice of the OpenAI client the generator uses.
// Tests substitute a canned implementation.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator wraps the external LLM service behind the three structured
// operations the application needs. Every prompt demands bare JSON; the
// response is defensively unfenced and re-validated before anything reaches
// the database.
type Generator struct {
	client ChatCompleter
	model  string
}

// QuizQuestion is one multiple-choice question, answer as a choice index.
type QuizQuestion struct {
	Q       string   `json:"q"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// ChatTurn is one prior exchange in a tutor conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// TopicMatch is one best-effort classification result.
type TopicMatch struct {
	Slug       string  `json:"slug"`
	Confidence float64 `json:"confidence"`
}

// NewGenerator builds a Generator from configuration.
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		client: openai.NewClient(cfg.OpenAIAPIKey),
		model:  cfg.OpenAIModel,
	}
}

// NewGeneratorWithClient builds a Generator around an existing client.
func NewGeneratorWithClient(client ChatCompleter, model string) *Generator {
	return &Generator{client: client, model: model}
}

const roadmapSystemPrompt = "You are an expert curriculum designer. Respond with valid JSON only, no prose, no markdown fences."

// GenerateRoadmap asks the model for a structured learning plan.
func (g *Generator) GenerateRoadmap(ctx context.Context, topic, details string) (*models.RoadmapContent, error) {
	if details == "" {
		details = "No additional details; design for a beginner."
	}

	prompt := fmt.Sprintf(`Design a learning roadmap.

Main topic: %s
Additional details: %s

Steps:
1. Judge the topic's complexity and estimate a realistic total duration (e.g. "3 Months").
2. Break the topic into logical milestones.
3. Give each milestone a timeframe label ("Day 1-3", "Week 1", "Week 2-3", ...), a topic, and 3-6 concrete sub-topics.

Return only JSON in this shape:
{"duration":"...","milestones":[{"timeframe":"...","topic":"...","details":"...","sub_tasks":["..."]}]}`,
		topic, details)

	raw, err := g.complete(ctx, roadmapSystemPrompt, prompt, 0.5)
	if err != nil {
		return nil, err
	}

	text := extractJSON(raw, '{', '}')
	var content models.RoadmapContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("%w: unparsable roadmap structure: %v", ErrGeneration, err)
	}
	if len(content.Milestones) == 0 {
		return nil, fmt.Errorf("%w: empty milestone list", ErrGeneration)
	}
	return &content, nil
}

// GenerateMaterial writes the reading unit for one sub-topic of a milestone.
func (g *Generator) GenerateMaterial(ctx context.Context, milestoneTopic, subtopic string) (models.Material, error) {
	prompt := fmt.Sprintf(`You are a mentor writing clear, beginner-friendly study material for a single sub-topic.

Milestone: %s
Sub-topic: %s

Write 2-3 narrative paragraphs explaining the core concepts practically, plus 1-2 bullet points stressing the essentials. Do not add exercises, tasks, or projects.

Return only JSON in this shape:
{"body":"...","points":["..."]}`,
		milestoneTopic, subtopic)

	raw, err := g.complete(ctx, roadmapSystemPrompt, prompt, 0.6)
	if err != nil {
		return models.Material{}, err
	}

	text := extractJSON(raw, '{', '}')
	var parsed struct {
		Body   string   `json:"body"`
		Points []string `json:"points"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return models.Material{}, fmt.Errorf("%w: unparsable material: %v", ErrGeneration, err)
	}
	if strings.TrimSpace(parsed.Body) == "" {
		return models.Material{}, fmt.Errorf("%w: empty material body", ErrGeneration)
	}

	return models.Material{
		Title:     subtopic,
		Body:      strings.TrimSpace(parsed.Body),
		Points:    parsed.Points,
		HeroImage: heroImageURL(subtopic),
	}, nil
}

// GenerateQuiz produces up to five multiple-choice questions answerable
// strictly from the supplied materials. The grounding is part of the
// contract: the prompt forbids outside knowledge, and materials are the only
// context supplied.
func (g *Generator) GenerateQuiz(ctx context.Context, materials []models.Material) ([]QuizQuestion, error) {
	if len(materials) == 0 {
		return []QuizQuestion{}, nil
	}

	var contextParts []string
	for i, m := range materials {
		body := m.Body
		if len(body) > 2000 {
			body = body[:2000]
		}
		part := fmt.Sprintf("Sub-topic %d: %s\nBody:\n%s", i+1, m.Title, body)
		if len(m.Points) > 0 {
			part += "\nPoints:\n- " + strings.Join(m.Points, "\n- ")
		}
		contextParts = append(contextParts, part)
	}

	prompt := fmt.Sprintf(`Write 5 multiple-choice questions BASED ONLY ON THE CONTENT BELOW. Do not use knowledge outside this context, and make every correct answer verifiable from it. Beginner-to-intermediate difficulty.

Return only a JSON array in this shape:
[{"q":"...","choices":["A","B","C","D"],"answer":0}]

Material context:
%s`, strings.Join(contextParts, "\n\n---\n\n"))

	raw, err := g.complete(ctx, roadmapSystemPrompt, prompt, 0.4)
	if err != nil {
		return nil, err
	}

	text := extractJSON(raw, '[', ']')
	var parsed []QuizQuestion
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unparsable quiz: %v", ErrGeneration, err)
	}

	cleaned := make([]QuizQuestion, 0, 5)
	for _, q := range parsed {
		if q.Q == "" || len(q.Choices) == 0 {
			continue
		}
		if len(q.Choices) > 6 {
			q.Choices = q.Choices[:6]
		}
		if q.Answer < 0 {
			q.Answer = 0
		}
		if q.Answer >= len(q.Choices) {
			q.Answer = len(q.Choices) - 1
		}
		cleaned = append(cleaned, q)
		if len(cleaned) == 5 {
			break
		}
	}
	return cleaned, nil
}

const tutorSystemPrompt = "You are a patient study assistant. Answer in clear, concise prose; no markdown fences."

// AnswerQuestion answers a learner's question strictly from one reading
// unit's text, under the same grounding contract as the quiz: when the
// material does not contain the answer, the model must say so and point back
// at the material rather than improvise. History is capped to the last six
// turns so the context window stays bounded.
func (g *Generator) AnswerQuestion(ctx context.Context, material models.Material, question string, history []ChatTurn) (string, error) {
	body := material.Body
	if len(body) > 4000 {
		body = body[:4000]
	}
	contextText := fmt.Sprintf("Title: %s\nBody:\n%s", material.Title, body)
	if len(material.Points) > 0 {
		contextText += "\nPoints:\n- " + strings.Join(material.Points, "\n- ")
	}

	if len(history) > 6 {
		history = history[len(history)-6:]
	}
	var past []string
	for _, turn := range history {
		role := "Assistant"
		if turn.Role == "user" {
			role = "User"
		}
		content := turn.Content
		if len(content) > 600 {
			content = content[:600]
		}
		past = append(past, role+": "+content)
	}

	prompt := fmt.Sprintf(`Answer the question ONLY from the material context below. If the answer is not in the context, say honestly that the material does not cover it and suggest which part to re-read. At most 8 sentences.

Material context:
%s

Recent conversation (optional):
%s

Question: %s`,
		contextText, strings.Join(past, "\n"), question)

	raw, err := g.complete(ctx, tutorSystemPrompt, prompt, 0.4)
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", ErrGeneration)
	}
	if len(answer) > 1200 {
		answer = answer[:1200]
	}
	return answer, nil
}

// ClassifyTopics maps a roadmap onto the controlled vocabulary. Callers treat
// failures as empty results; classification is best effort.
func (g *Generator) ClassifyTopics(ctx context.Context, title string, content models.RoadmapContent, vocabulary []models.Topic) ([]TopicMatch, error) {
	if len(vocabulary) == 0 {
		return nil, nil
	}

	slugs := make([]string, len(vocabulary))
	for i, t := range vocabulary {
		slugs[i] = t.Slug
	}
	var milestoneTopics []string
	for _, m := range content.Milestones {
		milestoneTopics = append(milestoneTopics, m.Topic)
	}

	prompt := fmt.Sprintf(`Classify a learning roadmap against a fixed vocabulary. Pick 1-3 matching slugs from this list and nothing else: %s

Roadmap title: %s
Milestones: %s

Return only a JSON array, strongest match first, confidence in [0,1]:
[{"slug":"...","confidence":0.9}]`,
		strings.Join(slugs, ", "), title, strings.Join(milestoneTopics, "; "))

	raw, err := g.complete(ctx, roadmapSystemPrompt, prompt, 0)
	if err != nil {
		return nil, err
	}

	text := extractJSON(raw, '[', ']')
	var parsed []TopicMatch
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unparsable classification: %v", ErrGeneration, err)
	}

	known := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		known[s] = struct{}{}
	}
	matches := make([]TopicMatch, 0, 3)
	for _, m := range parsed {
		if _, ok := known[m.Slug]; !ok {
			continue
		}
		if m.Confidence < 0 {
			m.Confidence = 0
		}
		if m.Confidence > 1 {
			m.Confidence = 1
		}
		matches = append(matches, m)
		if len(matches) == 3 {
			break
		}
	}
	return matches, nil
}

func (g *Generator) complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGeneration)
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown fences and slices out the first balanced
// occurrence of the requested bracket pair. Models fence output despite
// instructions often enough that this is cheaper than re-prompting.
func extractJSON(raw string, openDelim, closeDelim byte) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if first := strings.IndexByte(text, '\n'); first != -1 {
			if last := strings.LastIndex(text, "```"); last > first {
				text = strings.TrimSpace(text[first+1 : last])
			}
		}
	}
	start := strings.IndexByte(text, openDelim)
	end := strings.LastIndexByte(text, closeDelim)
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}

// heroImageURL builds the upstream image-asset URL for a sub-topic.
func heroImageURL(subtopic string) string {
	return "https://source.unsplash.com/1200x500/?" + url.QueryEscape(subtopic)
}
