package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// TaskUpdate is one checklist mutation: mark sub-task (milestone, task) as
// done or not done.
type TaskUpdate struct {
	MilestoneIndex int
	TaskIndex      int
	Done           bool
}

// ReadTarget points at the next thing a learner should open.
type ReadTarget struct {
	Kind           string `json:"kind"` // "read", "quiz", or "overview"
	MilestoneIndex int    `json:"m"`
	SubIndex       int    `json:"s,omitempty"`
}

// ReadView is the payload for one prepared reading unit plus navigation.
type ReadView struct {
	Material *models.Material `json:"material"`
	Next     *ReadTarget      `json:"next,omitempty"`
}

func taskKey(milestone, task int) string {
	return fmt.Sprintf("m-%d-t-%d", milestone, task)
}

func quizKey(milestone int) string {
	return fmt.Sprintf("quiz-m-%d", milestone)
}

// GetProgress returns the progress row for an owned roadmap.
func GetProgress(db *gorm.DB, roadmapID, userID string) (*models.RoadmapProgress, error) {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return nil, err
	}
	if roadmap.Progress != nil {
		return roadmap.Progress, nil
	}

	// Roadmaps always get a progress row at creation; tolerate a missing
	// one from older data by materializing it here.
	emptyMap, err := models.MarshalJSONColumn(models.CompletionMap{})
	if err != nil {
		return nil, err
	}
	progress := models.RoadmapProgress{
		RoadmapID:      roadmap.ID,
		CompletedTasks: emptyMap,
		Percent:        0,
	}
	if err := db.Create(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// UpdateTasks applies checklist mutations to the completion map and rewrites
// the derived percent in the same transaction, so a reader can never observe
// a stale percent.
//
// Percent denominator: checklist sub-tasks only. Quiz pass/fail entries are
// an independent gate and never count toward percent.
func UpdateTasks(db *gorm.DB, roadmapID, userID string, updates []TaskUpdate) (*models.RoadmapProgress, error) {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return nil, err
	}
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		return nil, err
	}

	for _, u := range updates {
		if u.MilestoneIndex < 0 || u.MilestoneIndex >= len(content.Milestones) {
			return nil, fmt.Errorf("%w: milestone index %d out of range", ErrInvalidInput, u.MilestoneIndex)
		}
		if u.TaskIndex < 0 || u.TaskIndex >= len(content.Milestones[u.MilestoneIndex].SubTopics()) {
			return nil, fmt.Errorf("%w: task index %d out of range", ErrInvalidInput, u.TaskIndex)
		}
	}

	var progress *models.RoadmapProgress
	err = db.Transaction(func(tx *gorm.DB) error {
		progress, err = lockedProgress(tx, roadmap.ID)
		if err != nil {
			return err
		}
		completed, err := models.ParseCompletion(progress.CompletedTasks)
		if err != nil {
			return err
		}

		for _, u := range updates {
			completed[taskKey(u.MilestoneIndex, u.TaskIndex)] = models.CompletionEntry{Done: u.Done}
		}

		return writeProgress(tx, progress, completed, content)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// SubmitQuiz records a milestone quiz result under quiz-m-{index}. The entry
// gates the next milestone's material; it does not change percent.
func SubmitQuiz(db *gorm.DB, roadmapID, userID string, milestoneIndex int, score float64, passed bool) (*models.RoadmapProgress, error) {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return nil, err
	}
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		return nil, err
	}
	if milestoneIndex < 0 || milestoneIndex >= len(content.Milestones) {
		return nil, fmt.Errorf("%w: milestone index %d out of range", ErrInvalidInput, milestoneIndex)
	}
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: score must be between 0 and 100", ErrInvalidInput)
	}

	var progress *models.RoadmapProgress
	err = db.Transaction(func(tx *gorm.DB) error {
		progress, err = lockedProgress(tx, roadmap.ID)
		if err != nil {
			return err
		}
		completed, err := models.ParseCompletion(progress.CompletedTasks)
		if err != nil {
			return err
		}

		completed[quizKey(milestoneIndex)] = models.CompletionEntry{Passed: passed, Score: score}

		return writeProgress(tx, progress, completed, content)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// GetMaterial resolves the reading unit at (m, s) for an owned roadmap.
//
// Gating: for m > 0 the previous milestone's quiz must be passed; otherwise
// the caller is redirected to that quiz instead of the material. Milestone 0
// has no prior gate.
func GetMaterial(db *gorm.DB, roadmapID, userID string, m, s int) (*ReadView, *ReadTarget, error) {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return nil, nil, err
	}
	content, err := models.ParseContent(roadmap.Content)
	if err != nil {
		return nil, nil, err
	}
	if m < 0 || s < 0 {
		return nil, nil, fmt.Errorf("%w: negative material index", ErrInvalidInput)
	}

	completed := models.CompletionMap{}
	if roadmap.Progress != nil {
		completed, err = models.ParseCompletion(roadmap.Progress.CompletedTasks)
		if err != nil {
			return nil, nil, err
		}
	}

	// Bounds before gating: a request past the prepared materials is a 404,
	// never a redirect to a quiz that may not exist.
	byMilestone := content.MaterialsByMilestone
	if m >= len(byMilestone) || s >= len(byMilestone[m]) {
		return nil, nil, ErrNotFound
	}

	if m > 0 && !completed[quizKey(m-1)].Passed {
		return nil, &ReadTarget{Kind: "quiz", MilestoneIndex: m - 1}, nil
	}

	material := byMilestone[m][s]

	view := &ReadView{
		Material: &material,
		Next:     nextTarget(byMilestone, completed, m, s),
	}
	return view, nil, nil
}

// nextTarget walks the navigation state machine: next sub-index in the same
// milestone; else this milestone's quiz while unpassed; else the next
// milestone's first material; else back to the overview.
func nextTarget(byMilestone [][]models.Material, completed models.CompletionMap, m, s int) *ReadTarget {
	if s+1 < len(byMilestone[m]) {
		return &ReadTarget{Kind: "read", MilestoneIndex: m, SubIndex: s + 1}
	}
	if !completed[quizKey(m)].Passed {
		return &ReadTarget{Kind: "quiz", MilestoneIndex: m}
	}
	if m+1 < len(byMilestone) && len(byMilestone[m+1]) > 0 {
		return &ReadTarget{Kind: "read", MilestoneIndex: m + 1, SubIndex: 0}
	}
	return &ReadTarget{Kind: "overview"}
}

// lockedProgress loads the progress row under a row lock for mutation.
// SQLite serializes writers on its own and rejects FOR UPDATE.
func lockedProgress(tx *gorm.DB, roadmapID string) (*models.RoadmapProgress, error) {
	query := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)})
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var progress models.RoadmapProgress
	err := query.
		Where("roadmap_id = ?", roadmapID).
		First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		emptyMap, mErr := models.MarshalJSONColumn(models.CompletionMap{})
		if mErr != nil {
			return nil, mErr
		}
		progress = models.RoadmapProgress{RoadmapID: roadmapID, CompletedTasks: emptyMap}
		if err := tx.Create(&progress).Error; err != nil {
			return nil, err
		}
		return &progress, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// writeProgress persists the completion map and its recomputed percent.
func writeProgress(tx *gorm.DB, progress *models.RoadmapProgress, completed models.CompletionMap, content models.RoadmapContent) error {
	col, err := models.MarshalJSONColumn(completed)
	if err != nil {
		return err
	}
	progress.CompletedTasks = col
	progress.Percent = computePercent(completed, content)
	return tx.Model(progress).
		Select("completed_tasks", "percent").
		Updates(map[string]interface{}{
			"completed_tasks": col,
			"percent":         progress.Percent,
		}).Error
}

// computePercent derives completion as round(100 * done / totalTasks). Only
// in-range checklist keys count; quiz entries and orphaned keys from edited
// content are ignored.
func computePercent(completed models.CompletionMap, content models.RoadmapContent) int {
	total := content.TotalTasks()
	if total == 0 {
		return 0
	}

	done := 0
	for mi, milestone := range content.Milestones {
		for ti := range milestone.SubTopics() {
			if completed[taskKey(mi, ti)].Done {
				done++
			}
		}
	}

	return int(math.Round(100 * float64(done) / float64(total)))
}
