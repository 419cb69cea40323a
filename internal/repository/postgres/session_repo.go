package postgres

import (
	"context"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.UserSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *sessionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.UserSession{}, "id = ?", id).Error
}

func (r *sessionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.UserSession{}, "user_id = ?", userID).Error
}

// DeleteExpired removes sessions whose refresh window closed before cutoff.
func (r *sessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&domain.UserSession{}, "expires_at < ?", cutoff)
	return result.RowsAffected, result.Error
}

func (r *sessionRepository) first(ctx context.Context, query string, arg interface{}) (*domain.UserSession, error) {
	var session domain.UserSession
	if err := r.db.WithContext(ctx).Where(query, arg).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
