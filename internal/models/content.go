package models

import (
	"encoding/json"
)

// RoadmapContent is the nested content document stored in roadmaps.content.
// Milestones are authored at generation time; MaterialsByMilestone is appended
// later by material preparation and is nil until then.
type RoadmapContent struct {
	Duration             string       `json:"duration,omitempty"`
	Milestones           []Milestone  `json:"milestones"`
	MaterialsByMilestone [][]Material `json:"materialsByMilestone,omitempty"`
}

// Milestone is one stage of a roadmap. Sub-topics arrive under either the
// "subbab" or the legacy "sub_tasks" key depending on the generation vintage.
type Milestone struct {
	Timeframe string   `json:"timeframe"`
	Topic     string   `json:"topic"`
	Details   string   `json:"details,omitempty"`
	SubTasks  []string `json:"sub_tasks,omitempty"`
	Subbab    []string `json:"subbab,omitempty"`
}

// SubTopics returns the milestone's checkable leaf items, whichever key they
// were stored under.
func (m Milestone) SubTopics() []string {
	if len(m.Subbab) > 0 {
		return m.Subbab
	}
	return m.SubTasks
}

// Material is one prepared reading unit for a (milestone, sub-index) pair.
type Material struct {
	MilestoneIndex int      `json:"milestoneIndex"`
	SubIndex       int      `json:"subIndex"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Points         []string `json:"points"`
	HeroImage      string   `json:"heroImage,omitempty"`
}

// CompletionEntry is one record in the progress map. Checklist keys carry
// Done; quiz keys carry Passed and Score.
type CompletionEntry struct {
	Done   bool    `json:"done,omitempty"`
	Passed bool    `json:"passed,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// CompletionMap maps composite progress keys to their completion entries.
type CompletionMap map[string]CompletionEntry

// ParseContent decodes a roadmap's JSON content column. A null or empty
// column decodes to the zero value.
func ParseContent(raw JSON) (RoadmapContent, error) {
	var content RoadmapContent
	data := raw.JSON
	if len(data) == 0 {
		return content, nil
	}
	if err := json.Unmarshal(data, &content); err != nil {
		return content, err
	}
	return content, nil
}

// ParseCompletion decodes a progress row's completed-tasks column.
func ParseCompletion(raw JSON) (CompletionMap, error) {
	m := make(CompletionMap)
	data := raw.JSON
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSONColumn encodes a value into the portable JSON column type.
func MarshalJSONColumn(v interface{}) (JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return JSON{}, err
	}
	var col JSON
	if err := col.Scan(data); err != nil {
		return JSON{}, err
	}
	return col, nil
}

// TotalTasks counts the checklist denominator: every sub-topic across every
// milestone. Quiz entries are a separate gate and are not counted here.
func (c RoadmapContent) TotalTasks() int {
	total := 0
	for _, m := range c.Milestones {
		total += len(m.SubTopics())
	}
	return total
}
