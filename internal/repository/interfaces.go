package repository

import (
	"context"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	GetByGitHubID(ctx context.Context, githubID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.UserSession, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityRepository stores activity records. Create must reject a second
// record with the same StravaID with gorm.ErrDuplicatedKey.
type ActivityRepository interface {
	Create(ctx context.Context, record *domain.ActivityRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ActivityRecord, error)
	GetByStravaID(ctx context.Context, stravaID int64) (*domain.ActivityRecord, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ActivityRecord, error)
	Update(ctx context.Context, record *domain.ActivityRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CredentialRepository stores at most one Strava credential per user.
type CredentialRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.StravaCredential, error)
	Upsert(ctx context.Context, cred *domain.StravaCredential) error
	Update(ctx context.Context, cred *domain.StravaCredential) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type Repositories struct {
	User       UserRepository
	Session    SessionRepository
	Activity   ActivityRepository
	Credential CredentialRepository
}
