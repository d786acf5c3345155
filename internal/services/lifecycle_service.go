package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"github.com/belajaryuk/roadmap-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetPublished flips a roadmap's publication state.
//
// Publishing requires, in order: ownership, a null SourceID (forks are never
// publishable), and 100% progress. The slug is derived from the title and
// suffixed with an incrementing number until unique. Unpublishing clears
// published/publishedAt but keeps the slug so old links stay recognizable.
func SetPublished(db *gorm.DB, roadmapID, userID string, publish bool) (*models.Roadmap, error) {
	roadmap, err := GetOwnedRoadmap(db, roadmapID, userID)
	if err != nil {
		return nil, err
	}

	if !publish {
		updates := map[string]interface{}{
			"published":    false,
			"published_at": nil,
		}
		if err := db.Model(roadmap).Updates(updates).Error; err != nil {
			return nil, err
		}
		roadmap.Published = false
		roadmap.PublishedAt = nil
		return roadmap, nil
	}

	if roadmap.SourceID != nil {
		return nil, ErrForkedPublish
	}
	percent := 0
	if roadmap.Progress != nil {
		percent = roadmap.Progress.Percent
	}
	if percent < 100 {
		return nil, &IncompleteError{Percent: percent}
	}

	slug, err := uniqueSlug(db, roadmap)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"published":    true,
		"slug":         slug,
		"published_at": now,
	}
	if err := db.Model(roadmap).Updates(updates).Error; err != nil {
		return nil, err
	}
	roadmap.Published = true
	roadmap.Slug = &slug
	roadmap.PublishedAt = &now
	return roadmap, nil
}

// uniqueSlug derives a slug from the title and appends -1, -2, ... until no
// other roadmap holds it. The roadmap's own row is excluded so republishing
// under an unchanged title keeps its slug.
func uniqueSlug(db *gorm.DB, roadmap *models.Roadmap) (string, error) {
	base := utils.Slugify(roadmap.Title)
	if base == "" {
		base = fmt.Sprintf("roadmap-%s", shortID(roadmap.ID))
	}

	slug := base
	for i := 1; ; i++ {
		var holder models.Roadmap
		err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
			Select("id").
			Where("slug = ? AND id <> ?", slug, roadmap.ID).
			First(&holder).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func shortID(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}
