package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bloomhealth/bloom/cycle"
	"github.com/bloomhealth/bloom/models"
)

// CycleRepository is the append-only log of cycle starts.
type CycleRepository struct {
	db *gorm.DB
}

// NewCycleRepository creates a repository on db.
func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Append logs a cycle start for the user.
func (r *CycleRepository) Append(ctx context.Context, userID uint, start time.Time) (*models.CycleEvent, error) {
	ev := &models.CycleEvent{UserID: userID, StartDate: models.DateOf(start)}
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, fmt.Errorf("append cycle event: %w", err)
	}
	return ev, nil
}

// Latest returns the current cycle: greatest start_date, ties resolved by cycle.Latest.
// It returns nil when the user never logged a cycle.
func (r *CycleRepository) Latest(ctx context.Context, userID uint) (*models.CycleEvent, error) {
	db := r.db.WithContext(ctx)
	newest := db.Model(&models.CycleEvent{}).
		Select("MAX(start_date)").
		Where("user_id = ?", userID)

	var tied []models.CycleEvent
	if err := db.Where("user_id = ? AND start_date = (?)", userID, newest).
		Find(&tied).Error; err != nil {
		return nil, fmt.Errorf("latest cycle event: %w", err)
	}
	return cycle.Latest(tied), nil
}

// List returns up to limit events ordered the same way as Latest.
func (r *CycleRepository) List(ctx context.Context, userID uint, limit int) ([]models.CycleEvent, error) {
	var items []models.CycleEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list cycle events: %w", err)
	}
	return items, nil
}
