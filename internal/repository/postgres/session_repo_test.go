package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/repository/postgres"
	"github.com/dom/athlete-log/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSessionRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()
	user, _ := testutil.NewUserBuilder().Build(t, repos)

	newSession := func(expiresAt time.Time) *domain.UserSession {
		session := &domain.UserSession{
			ID:               uuid.New(),
			UserID:           user.ID,
			RefreshTokenHash: "hash",
			ExpiresAt:        expiresAt,
			CreatedAt:        time.Now(),
		}
		require.NoError(t, repos.Session.Create(ctx, session))
		return session
	}

	live := newSession(time.Now().Add(24 * time.Hour))
	newSession(time.Now().Add(-time.Hour))

	got, err := repos.Session.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	purged, err := repos.Session.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	byUser, err := repos.Session.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, live.ID, byUser.ID)

	require.NoError(t, repos.Session.DeleteByUserID(ctx, user.ID))
	_, err = repos.Session.GetByID(ctx, live.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
