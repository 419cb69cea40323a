package postgres

import (
	"context"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *credentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.StravaCredential, error) {
	var cred domain.StravaCredential
	err := r.db.WithContext(ctx).First(&cred, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Upsert inserts the credential or overwrites the user's existing one in place.
// cred is refreshed from the stored row, so an overwrite keeps the original id.
func (r *credentialRepository) Upsert(ctx context.Context, cred *domain.StravaCredential) error {
	return r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "athlete_id", "updated_at"}),
		},
		clause.Returning{},
	).Create(cred).Error
}

// Update overwrites the token triple of an existing credential in one statement.
func (r *credentialRepository) Update(ctx context.Context, cred *domain.StravaCredential) error {
	result := r.db.WithContext(ctx).
		Model(&domain.StravaCredential{}).
		Where("user_id = ?", cred.UserID).
		Updates(map[string]interface{}{
			"access_token":  cred.AccessToken,
			"refresh_token": cred.RefreshToken,
			"expires_at":    cred.ExpiresAt,
			"updated_at":    cred.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *credentialRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.StravaCredential{}, "user_id = ?", userID).Error
}

func (r *credentialRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.StravaCredential{}).Count(&count).Error
	return count, err
}
