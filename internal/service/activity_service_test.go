package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/events"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/dom/athlete-log/internal/service"
	"github.com/dom/athlete-log/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newActivityService(t *testing.T, strict bool) (*service.ActivityService, *repository.Repositories, *testutil.RecordingPublisher) {
	t.Helper()

	repos := testutil.NewMemoryStore().Repositories()
	publisher := &testutil.RecordingPublisher{}
	svc := service.NewActivityService(repos.Activity, publisher, strict, zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
	return svc, repos, publisher
}

func TestActivityService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name         string
		input        domain.ActivityInput
		wantType     string
		wantDistance float64
		wantTime     string
		wantPace     string
		wantMonth    string
		wantIssues   []string
	}{
		{
			name: "complete entry",
			input: domain.ActivityInput{
				Date: "2024-03-01", ActivityType: "Running", Distance: "5", Time: "00:25:00", Calories: "300",
			},
			wantType: "Running", wantDistance: 5, wantTime: "00:25:00", wantPace: "05:00", wantMonth: "03-2024",
		},
		{
			name: "minutes and seconds",
			input: domain.ActivityInput{
				Date: "2023-12-31", ActivityType: "Swimming", Distance: "2", Time: "40:00",
			},
			wantType: "Swimming", wantDistance: 2, wantTime: "40:00", wantPace: "20:00", wantMonth: "12-2023",
		},
		{
			name:     "empty entry falls back to defaults",
			input:    domain.ActivityInput{},
			wantType: "Running", wantDistance: 0, wantTime: "00:00:00", wantMonth: "03-2024",
		},
		{
			name: "malformed values are replaced and reported",
			input: domain.ActivityInput{
				Date: "yesterday", Distance: "five", Time: "25 minutes", Calories: "-10",
			},
			wantType: "Running", wantDistance: 0, wantTime: "00:00:00", wantMonth: "03-2024",
			wantIssues: []string{"date", "distance", "calories", "time"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repos, publisher := newActivityService(t, false)

			record, issues, err := svc.Create(ctx, userID, tt.input)
			require.NoError(t, err)

			testutil.AssertActivity(t, record, tt.wantType, tt.wantDistance, tt.wantTime, tt.wantPace, tt.wantMonth)
			assert.Equal(t, userID, record.UserID)
			assert.Nil(t, record.StravaID)

			var fields []string
			for _, issue := range issues {
				fields = append(fields, issue.Field)
			}
			assert.Equal(t, tt.wantIssues, fields)

			stored, err := repos.Activity.GetByID(ctx, record.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMonth, stored.MonthYear)
			assert.Equal(t, []string{events.ActivityCreated}, publisher.Types())
		})
	}
}

func TestActivityService_CreateStrict(t *testing.T) {
	svc, repos, publisher := newActivityService(t, true)
	userID := uuid.New()

	_, _, err := svc.Create(context.Background(), userID, domain.ActivityInput{Distance: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var inputErr *domain.InputError
	require.ErrorAs(t, err, &inputErr)
	require.Len(t, inputErr.Issues, 1)
	assert.Equal(t, "distance", inputErr.Issues[0].Field)

	records, err := repos.Activity.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, publisher.Events())

	record, issues, err := svc.Create(context.Background(), userID, domain.ActivityInput{Distance: "3", Time: "15:00"})
	require.NoError(t, err, "missing fields are not errors in strict mode")
	assert.Empty(t, issues)
	assert.Equal(t, "05:00", *record.Pace)
}

func TestActivityService_Update(t *testing.T) {
	ctx := context.Background()
	svc, repos, _ := newActivityService(t, false)
	user, _ := testutil.NewUserBuilder().Build(t, repos)
	record := testutil.NewActivityBuilder().
		WithUser(user.ID).
		WithDate(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)).
		WithDistance(5).
		WithTime("00:25:00").
		WithStravaID(77).
		Build(t, repos)

	t.Run("date change moves the month bucket", func(t *testing.T) {
		updated, issues, err := svc.Update(ctx, user.ID, record.ID, domain.ActivityInput{
			Date: "2024-04-02", ActivityType: "Running", Distance: "10", Time: "00:45:00",
		})
		require.NoError(t, err)
		assert.Empty(t, issues)
		testutil.AssertActivity(t, updated, "Running", 10, "00:45:00", "04:30", "04-2024")

		stored, err := repos.Activity.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, "04-2024", stored.MonthYear)
		require.NotNil(t, stored.StravaID)
		assert.Equal(t, int64(77), *stored.StravaID, "strava id is fixed")
		assert.Equal(t, user.ID, stored.UserID)
	})

	t.Run("unusable date keeps the current one", func(t *testing.T) {
		updated, issues, err := svc.Update(ctx, user.ID, record.ID, domain.ActivityInput{
			Date: "not-a-date", Distance: "10", Time: "00:45:00",
		})
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, "date", issues[0].Field)
		assert.Equal(t, "04-2024", updated.MonthYear)
	})

	t.Run("another user cannot edit", func(t *testing.T) {
		_, _, err := svc.Update(ctx, uuid.New(), record.ID, domain.ActivityInput{Distance: "1"})
		assert.ErrorIs(t, err, domain.ErrActivityNotFound)

		stored, err := repos.Activity.GetByID(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, 10.0, *stored.Distance)
	})
}

func TestActivityService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repos, publisher := newActivityService(t, false)
	owner, _ := testutil.NewUserBuilder().Build(t, repos)
	other, _ := testutil.NewUserBuilder().Build(t, repos)
	record := testutil.NewActivityBuilder().WithUser(owner.ID).Build(t, repos)

	err := svc.Delete(ctx, other.ID, record.ID)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = repos.Activity.GetByID(ctx, record.ID)
	require.NoError(t, err, "record survives a foreign delete")
	assert.Empty(t, publisher.Events())

	require.NoError(t, svc.Delete(ctx, owner.ID, record.ID))
	_, err = svc.Get(ctx, owner.ID, record.ID)
	assert.ErrorIs(t, err, domain.ErrActivityNotFound)
	assert.Equal(t, []string{events.ActivityDeleted}, publisher.Types())

	err = svc.Delete(ctx, owner.ID, record.ID)
	assert.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestActivityService_GetAndList(t *testing.T) {
	ctx := context.Background()
	svc, repos, _ := newActivityService(t, false)
	owner, _ := testutil.NewUserBuilder().Build(t, repos)

	older := testutil.NewActivityBuilder().WithUser(owner.ID).
		WithDate(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)).Build(t, repos)
	newer := testutil.NewActivityBuilder().WithUser(owner.ID).
		WithDate(time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)).Build(t, repos)
	testutil.NewActivityBuilder().Build(t, repos)

	records, err := svc.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, newer.ID, records[0].ID)
	assert.Equal(t, older.ID, records[1].ID)

	got, err := svc.Get(ctx, owner.ID, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)

	_, err = svc.Get(ctx, uuid.New(), older.ID)
	assert.ErrorIs(t, err, domain.ErrActivityNotFound)
}
