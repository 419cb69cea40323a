package postgres

import (
	"context"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, record *domain.ActivityRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *activityRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ActivityRecord, error) {
	var record domain.ActivityRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *activityRepository) GetByStravaID(ctx context.Context, stravaID int64) (*domain.ActivityRecord, error) {
	var record domain.ActivityRecord
	err := r.db.WithContext(ctx).First(&record, "strava_id = ?", stravaID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUser returns the user's records, newest date first.
func (r *activityRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ActivityRecord, error) {
	var records []*domain.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Update writes the user-editable columns only; ownership and the Strava id
// are fixed at creation.
func (r *activityRepository) Update(ctx context.Context, record *domain.ActivityRecord) error {
	return r.db.WithContext(ctx).
		Model(record).
		Select("date", "activity_type", "distance", "time", "pace", "calories", "month_year", "updated_at").
		Updates(record).Error
}

func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.ActivityRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
