package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bloomhealth/bloom/checkin"
	"github.com/bloomhealth/bloom/models"
)

// CheckInRepository is the gorm-backed checkin.Store.
type CheckInRepository struct {
	db *gorm.DB
}

var _ checkin.Store = (*CheckInRepository)(nil)

// NewCheckInRepository creates a repository on db.
func NewCheckInRepository(db *gorm.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// FindByUserDate implements checkin.Store.
func (r *CheckInRepository) FindByUserDate(ctx context.Context, userID uint, day time.Time) (*models.CheckIn, error) {
	var rec models.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, checkin.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find check-in: %w", err)
	}
	return &rec, nil
}

// CreateIfAbsent implements checkin.Store. The unique (user_id, date) index decides the winner;
// a conflicting insert is skipped rather than failing.
//
// MySQL renders the skip as ON DUPLICATE KEY UPDATE, which counts the untouched row as affected
// under clientFoundRows, so the stored row's id is compared with the one assigned to rec.
func (r *CheckInRepository) CreateIfAbsent(ctx context.Context, rec *models.CheckIn) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("create check-in: %w", res.Error)
	}
	if res.RowsAffected == 0 || rec.ID == 0 {
		return false, nil
	}

	var storedID uint
	if err := db.Model(&models.CheckIn{}).
		Select("id").
		Where("user_id = ? AND date = ?", rec.UserID, rec.Date).
		Scan(&storedID).Error; err != nil {
		return false, fmt.Errorf("read back check-in: %w", err)
	}
	return storedID == rec.ID, nil
}

// UpdateIfPending implements checkin.Store. The predicates are evaluated by the database at
// write time, so of two racing writers only the first one matches.
func (r *CheckInRepository) UpdateIfPending(ctx context.Context, rec *models.CheckIn, expectPrompt string) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.CheckIn{}).
		Where("id = ? AND status = ?", rec.ID, models.CheckInPending)
	if expectPrompt != "" {
		q = q.Where("prompt_text = ?", expectPrompt)
	}
	res := q.Updates(map[string]interface{}{
		"status":        rec.Status,
		"prompt_text":   rec.PromptText,
		"response_text": rec.ResponseText,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return false, fmt.Errorf("update check-in: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// History returns the user's most recent check-ins, newest first.
func (r *CheckInRepository) History(ctx context.Context, userID uint, limit int) ([]models.CheckIn, error) {
	var items []models.CheckIn
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return items, nil
}
