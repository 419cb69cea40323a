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

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	newUser := func(email, username string) *domain.User {
		return &domain.User{
			ID:           uuid.New(),
			Email:        email,
			Username:     username,
			PasswordHash: "hashedpassword",
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{
			name: "successful creation",
			user: newUser("runner@example.com", "runner"),
		},
		{
			name:    "duplicate email",
			user:    newUser("runner@example.com", "runner2"),
			wantErr: gorm.ErrDuplicatedKey,
		},
		{
			name:    "duplicate username",
			user:    newUser("other@example.com", "runner"),
			wantErr: gorm.ErrDuplicatedKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUserRepository_Lookups(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	local, _ := testutil.NewUserBuilder().WithEmail("local@example.com").WithUsername("local").Build(t, repos)
	google, _ := testutil.NewUserBuilder().WithGoogleID("g-1").Build(t, repos)
	github, _ := testutil.NewUserBuilder().WithGitHubID("1234").Build(t, repos)

	byEmail, err := repos.User.GetByEmail(ctx, "local@example.com")
	require.NoError(t, err)
	assert.Equal(t, local.ID, byEmail.ID)
	assert.True(t, byEmail.IsActive)

	byName, err := repos.User.GetByUsername(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, local.ID, byName.ID)

	byGoogle, err := repos.User.GetByGoogleID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, google.ID, byGoogle.ID)
	assert.False(t, byGoogle.HasPassword())

	byGitHub, err := repos.User.GetByGitHubID(ctx, "1234")
	require.NoError(t, err)
	assert.Equal(t, github.ID, byGitHub.ID)

	_, err = repos.User.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_Update(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, repos)
	githubID := "777"
	user.GitHubID = &githubID
	user.IsActive = false
	require.NoError(t, repos.User.Update(ctx, user))

	stored, err := repos.User.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GitHubID)
	assert.Equal(t, "777", *stored.GitHubID)
	assert.False(t, stored.IsActive)
}
