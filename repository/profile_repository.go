package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bloomhealth/bloom/models"
)

// ProfileRepository stores onboarding answers.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a repository on db.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetOrCreate returns the user's profile, creating an empty one on first access.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID uint) (*models.UserProfile, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserProfile{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	var p models.UserProfile
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// CompleteOnboarding saves the answers and logs lastPeriodStart as a cycle event in one transaction.
func (r *ProfileRepository) CompleteOnboarding(ctx context.Context, userID uint, avgCycleLength int, lastPeriodStart time.Time) (*models.UserProfile, error) {
	start := models.DateOf(lastPeriodStart)
	var out models.UserProfile

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserProfile{UserID: userID}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&out).Error; err != nil {
			return err
		}

		out.AvgCycleLength = avgCycleLength
		out.LastPeriodStart = &start
		out.HasCompletedOnboarding = true
		if err := tx.Save(&out).Error; err != nil {
			return err
		}

		return tx.Create(&models.CycleEvent{UserID: userID, StartDate: start}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}
	return &out, nil
}
