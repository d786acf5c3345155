package services

import (
	"errors"
	"strings"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// PublicListResult is one page of the public library.
type PublicListResult struct {
	Items      []models.Roadmap `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}

// ListPublicRoadmaps pages through published roadmaps. Page is floored at 1,
// pageSize clamped to [1,50] with a default of 12, and unknown sort values
// fall back to newest.
func ListPublicRoadmaps(db *gorm.DB, q, sort string, page, pageSize int) (*PublicListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 12
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > 50 {
		pageSize = 50
	}

	var orderBy string
	switch strings.ToLower(sort) {
	case "oldest":
		orderBy = "published_at ASC"
	case "title_asc":
		orderBy = "title ASC"
	case "title_desc":
		orderBy = "title DESC"
	default:
		orderBy = "published_at DESC"
	}

	query := db.Model(&models.Roadmap{}).Where("published = ?", true)
	if q != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Roadmap
	err := query.
		Clauses(hints.CommentBefore("select", "public_browse")).
		Preload("User").
		Preload("Aggregates").
		Order(orderBy).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return &PublicListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetPublicRoadmapBySlug resolves one published roadmap by its slug.
// Unpublished roadmaps are invisible here even when the slug still exists.
func GetPublicRoadmapBySlug(db *gorm.DB, slug string) (*models.Roadmap, error) {
	var roadmap models.Roadmap
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("User").
		Preload("Aggregates").
		Preload("Topics").
		Where("slug = ? AND published = ?", slug, true).
		First(&roadmap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &roadmap, nil
}
