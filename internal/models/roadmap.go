package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roadmap is a learning plan owned by exactly one user.
// A roadmap with a non-null SourceID is a fork and can never be published.
type Roadmap struct {
	ID          string  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      string  `gorm:"type:char(36);not null;index:idx_roadmap_dedup,unique" json:"userId"`
	Title       string  `gorm:"size:255;not null;index:idx_roadmap_dedup,unique" json:"title"`
	Content     JSON    `gorm:"type:json" json:"content"`
	ContentHash string  `gorm:"size:64;not null;index:idx_roadmap_dedup,unique" json:"contentHash"`
	Published   bool    `gorm:"not null;default:false;index" json:"published"`
	Slug        *string `gorm:"size:255;uniqueIndex" json:"slug"`
	PublishedAt *time.Time `json:"publishedAt"`
	SourceID    *string `gorm:"type:char(36);index" json:"sourceId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User       *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Progress   *RoadmapProgress  `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"progress,omitempty"`
	Aggregates *RoadmapAggregates `gorm:"foreignKey:RoadmapID;constraint:OnDelete:CASCADE" json:"aggregates,omitempty"`
	Topics     []Topic           `gorm:"many2many:roadmap_topics;" json:"topics,omitempty"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (r *Roadmap) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// RoadmapProgress tracks completion state, exactly one row per roadmap.
// CompletedTasks maps composite keys to completion entries:
//
//	m-{milestone}-t-{task} -> {done}
//	quiz-m-{milestone}     -> {passed, score}
//
// Percent is always recomputed from the map, never written independently.
type RoadmapProgress struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RoadmapID      string `gorm:"type:char(36);not null;uniqueIndex" json:"roadmapId"`
	CompletedTasks JSON   `gorm:"type:json" json:"completedTasks"`
	Percent        int    `gorm:"not null;default:0" json:"percent"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RoadmapSave is a bookmark: "user X saved public roadmap Y".
type RoadmapSave struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RoadmapID string `gorm:"type:char(36);not null;index:idx_save_roadmap_user,unique" json:"roadmapId"`
	UserID    string `gorm:"type:char(36);not null;index:idx_save_roadmap_user,unique" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoadmapRating is one 1-5 star rating per (roadmap, user).
type RoadmapRating struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	RoadmapID string `gorm:"type:char(36);not null;index:idx_rating_roadmap_user,unique" json:"roadmapId"`
	UserID    string `gorm:"type:char(36);not null;index:idx_rating_roadmap_user,unique" json:"userId"`
	Stars     int    `gorm:"not null" json:"stars"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoadmapAggregates holds denormalized counters for a roadmap. The row is
// always recomputed from the underlying rating/save/fork sets inside the
// transaction that mutated them; it is never incremented in place.
type RoadmapAggregates struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"-"`
	RoadmapID    string  `gorm:"type:char(36);not null;uniqueIndex" json:"roadmapId"`
	AvgStars     float64 `gorm:"not null;default:0" json:"avgStars"`
	RatingsCount int64   `gorm:"not null;default:0" json:"ratingsCount"`
	SavesCount   int64   `gorm:"not null;default:0" json:"savesCount"`
	ForksCount   int64   `gorm:"not null;default:0" json:"forksCount"`
	Rank         float64 `gorm:"not null;default:0" json:"rank"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName overrides the table name for Roadmap
func (Roadmap) TableName() string {
	return "roadmaps"
}

// TableName overrides the table name for RoadmapProgress
func (RoadmapProgress) TableName() string {
	return "roadmap_progress"
}

// TableName overrides the table name for RoadmapSave
func (RoadmapSave) TableName() string {
	return "roadmap_saves"
}

// TableName overrides the table name for RoadmapRating
func (RoadmapRating) TableName() string {
	return "roadmap_ratings"
}

// TableName overrides the table name for RoadmapAggregates
func (RoadmapAggregates) TableName() string {
	return "roadmap_aggregates"
}
