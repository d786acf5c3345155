package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/belajaryuk/roadmap-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// RateRoadmap upserts the caller's 1-5 star rating for a published roadmap
// and recomputes the aggregate row in the same transaction. Re-rating
// replaces the caller's previous stars; ratingsCount is unaffected.
func RateRoadmap(db *gorm.DB, roadmapID, userID string, stars int) (*models.RoadmapAggregates, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: stars must be between 1 and 5", ErrInvalidInput)
	}

	var target models.Roadmap
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("id = ?", roadmapID).
		First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !target.Published {
		return nil, ErrNotPublished
	}
	if target.UserID == userID {
		return nil, ErrOwnRoadmap
	}

	var aggregates *models.RoadmapAggregates
	err = db.Transaction(func(tx *gorm.DB) error {
		var rating models.RoadmapRating
		err := tx.Where("roadmap_id = ? AND user_id = ?", roadmapID, userID).
			First(&rating).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rating = models.RoadmapRating{RoadmapID: roadmapID, UserID: userID, Stars: stars}
			if err := tx.Create(&rating).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&rating).Update("stars", stars).Error; err != nil {
				return err
			}
		}

		if err := RecomputeAggregates(tx, roadmapID); err != nil {
			return err
		}
		aggregates, err = getAggregates(tx, roadmapID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return aggregates, nil
}

// RecomputeAggregates rewrites a roadmap's aggregate row as a pure function
// of the current rating/save/fork sets. It always issues fresh AVG and COUNT
// queries; counters are never incremented in place, so concurrent raters
// cannot make the row drift.
//
// The roadmap row is locked first. Under READ COMMITTED two concurrent
// raters would otherwise each count before seeing the other's committed
// insert, and the later commit would write stale totals. SQLite serializes
// writers on its own and rejects FOR UPDATE.
func RecomputeAggregates(tx *gorm.DB, roadmapID string) error {
	if tx.Dialector.Name() != "sqlite" {
		var locked models.Roadmap
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", roadmapID).
			First(&locked).Error; err != nil {
			return err
		}
	}

	var ratingsCount, savesCount, forksCount int64
	var avgStars float64

	if err := tx.Model(&models.RoadmapRating{}).
		Where("roadmap_id = ?", roadmapID).
		Count(&ratingsCount).Error; err != nil {
		return err
	}
	if ratingsCount > 0 {
		row := tx.Model(&models.RoadmapRating{}).
			Where("roadmap_id = ?", roadmapID).
			Select("AVG(stars)").
			Row()
		if err := row.Scan(&avgStars); err != nil {
			return err
		}
	}
	if err := tx.Model(&models.RoadmapSave{}).
		Where("roadmap_id = ?", roadmapID).
		Count(&savesCount).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Roadmap{}).
		Where("source_id = ?", roadmapID).
		Count(&forksCount).Error; err != nil {
		return err
	}

	avgStars = math.Round(avgStars*100) / 100
	aggregates := models.RoadmapAggregates{
		RoadmapID:    roadmapID,
		AvgStars:     avgStars,
		RatingsCount: ratingsCount,
		SavesCount:   savesCount,
		ForksCount:   forksCount,
		Rank:         rankScore(avgStars, ratingsCount, savesCount, forksCount),
		UpdatedAt:    time.Now().UTC(),
	}

	var existing models.RoadmapAggregates
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("roadmap_id = ?", roadmapID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&aggregates).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(&existing).
		Select("avg_stars", "ratings_count", "saves_count", "forks_count", "rank", "updated_at").
		Updates(&aggregates).Error
}

// rankScore orders browse results: a confidence-damped star average plus a
// logarithmic popularity term, so a single 5-star rating cannot outrank a
// well-saved roadmap.
func rankScore(avgStars float64, ratings, saves, forks int64) float64 {
	damped := avgStars * float64(ratings) / float64(ratings+5)
	popularity := math.Log1p(float64(saves + forks))
	return math.Round((damped+popularity)*1000) / 1000
}

func getAggregates(tx *gorm.DB, roadmapID string) (*models.RoadmapAggregates, error) {
	var aggregates models.RoadmapAggregates
	err := tx.Where("roadmap_id = ?", roadmapID).First(&aggregates).Error
	if err != nil {
		return nil, err
	}
	return &aggregates, nil
}
