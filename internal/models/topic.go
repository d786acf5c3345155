package models

import (
	"time"
)

// Topic is an entry in the controlled browse vocabulary ("Frontend", "DevOps", ...).
type Topic struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug      string `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Name      string `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RoadmapTopic links a roadmap to a vocabulary topic. Rows are populated by
// best-effort classification; an empty set is valid.
type RoadmapTopic struct {
	RoadmapID  string  `gorm:"type:char(36);primaryKey" json:"roadmapId"`
	TopicID    uint64  `gorm:"primaryKey" json:"topicId"`
	IsPrimary  bool    `gorm:"not null;default:false" json:"isPrimary"`
	Confidence float64 `gorm:"not null;default:0" json:"confidence"`
	CreatedAt  time.Time `json:"-"`
}

// TableName overrides the table name for Topic
func (Topic) TableName() string {
	return "topics"
}

// TableName overrides the table name for RoadmapTopic
func (RoadmapTopic) TableName() string {
	return "roadmap_topics"
}
