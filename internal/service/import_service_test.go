package service_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/events"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/dom/athlete-log/internal/service"
	"github.com/dom/athlete-log/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type importFixture struct {
	store     *testutil.MemoryStore
	repos     *repository.Repositories
	fake      *testutil.StravaFake
	publisher *testutil.RecordingPublisher
	service   *service.ImportService
	userID    uuid.UUID
}

// newImportFixture wires an importer for a user whose Strava token is valid.
func newImportFixture(t *testing.T, pageSize int) *importFixture {
	t.Helper()

	store := testutil.NewMemoryStore()
	repos := store.Repositories()
	fake := testutil.NewStravaFake(t)
	publisher := &testutil.RecordingPublisher{}
	client := fake.Client()

	credentials := service.NewCredentialService(repos.Credential, client, testutil.TestConfig(), zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
	importer := service.NewImportService(credentials, repos.Activity, client, publisher, pageSize, zap.NewNop())

	user, _ := testutil.NewUserBuilder().Build(t, repos)
	testutil.NewCredentialBuilder().
		WithUser(user.ID).
		WithTokens("A1", "R1").
		ExpiresAt(fixedNow.Add(time.Hour)).
		Build(t, repos)

	return &importFixture{
		store:     store,
		repos:     repos,
		fake:      fake,
		publisher: publisher,
		service:   importer,
		userID:    user.ID,
	}
}

const sampleActivities = `[
	{"id": 101, "name": "Morning Run", "type": "Run", "distance": 5000, "moving_time": 1500, "start_date_local": "2024-03-01T07:30:00Z", "calories": 350.5},
	{"id": 102, "name": "Commute", "type": "Ride", "distance": 10234.6, "moving_time": 1800, "start_date_local": "2024-02-28T18:00:00Z"},
	{"id": 103, "name": "Hike", "type": "Hike", "distance": 0, "moving_time": 7200, "start_date_local": "2024-02-20T09:00:00Z"}
]`

func TestImportService_ImportsAndNormalizes(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, 0)
	f.fake.SetActivities(sampleActivities)

	result, err := f.service.ImportActivities(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, service.ImportResult{Imported: 3}, result)

	assert.Equal(t, "30", f.fake.LastPerPage)
	assert.Equal(t, "A1", f.fake.LastAuthorization)
	assert.Equal(t, 0, f.fake.TokenCalls())

	run, err := f.repos.Activity.GetByStravaID(ctx, 101)
	require.NoError(t, err)
	testutil.AssertActivity(t, run, "Running", 5.0, "00:25:00", "05:00", "03-2024")
	assert.Equal(t, f.userID, run.UserID)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), run.Date)
	require.NotNil(t, run.Calories)
	assert.Equal(t, 350.5, *run.Calories)
	assert.Contains(t, string(run.ExternalPayload), `"Morning Run"`)

	ride, err := f.repos.Activity.GetByStravaID(ctx, 102)
	require.NoError(t, err)
	testutil.AssertActivity(t, ride, "Cycling", 10.23, "00:30:00", "02:55", "02-2024")
	assert.Nil(t, ride.Calories)

	hike, err := f.repos.Activity.GetByStravaID(ctx, 103)
	require.NoError(t, err)
	testutil.AssertActivity(t, hike, "Hike", 0, "02:00:00", "", "02-2024")

	assert.Equal(t, []string{events.ActivityImported, events.ActivityImported, events.ActivityImported}, f.publisher.Types())
	for _, e := range f.publisher.Events() {
		assert.Equal(t, f.userID, e.UserID)
		require.NotNil(t, e.StravaID)
	}
}

func TestImportService_CategoryMapping(t *testing.T) {
	tests := []struct {
		stravaType string
		want       string
	}{
		{"Run", "Running"},
		{"Ride", "Cycling"},
		{"Swim", "Swimming"},
		{"Walk", "Walking"},
		{"WeightTraining", "Gym"},
		{"Yoga", "Yoga"},
		{"VirtualRide", "VirtualRide"},
	}

	for i, tt := range tests {
		t.Run(tt.stravaType, func(t *testing.T) {
			ctx := context.Background()
			f := newImportFixture(t, 0)
			id := int64(500 + i)
			f.fake.SetActivities(`[{"id": ` + strconv.FormatInt(id, 10) + `, "type": "` + tt.stravaType + `", "distance": 1000, "moving_time": 600, "start_date_local": "2024-01-15T10:00:00Z"}]`)

			_, err := f.service.ImportActivities(ctx, f.userID)
			require.NoError(t, err)

			record, err := f.repos.Activity.GetByStravaID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.ActivityType)
		})
	}
}

func TestImportService_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, 0)
	f.fake.SetActivities(sampleActivities)

	first, err := f.service.ImportActivities(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Imported)

	second, err := f.service.ImportActivities(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, service.ImportResult{Skipped: 3}, second)
	assert.Equal(t, 3, f.store.ActivityCount())
	assert.Len(t, f.publisher.Events(), 3)
}

func TestImportService_SkipsActivitiesImportedByAnotherUser(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, 0)
	testutil.NewActivityBuilder().WithStravaID(101).Build(t, f.repos)
	f.fake.SetActivities(sampleActivities)

	result, err := f.service.ImportActivities(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, service.ImportResult{Imported: 2, Skipped: 1}, result)
}

func TestImportService_EmptyPage(t *testing.T) {
	f := newImportFixture(t, 0)

	result, err := f.service.ImportActivities(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, service.ImportResult{}, result)
}

func TestImportService_PageSize(t *testing.T) {
	f := newImportFixture(t, 50)

	_, err := f.service.ImportActivities(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "50", f.fake.LastPerPage)
}

func TestImportService_InvalidTimestampIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, 0)
	f.fake.SetActivities(`[
		{"id": 201, "type": "Run", "distance": 5000, "moving_time": 1500, "start_date_local": "01/03/2024 07:30"},
		{"id": 202, "type": "Run", "distance": 5000, "moving_time": 1500, "start_date_local": "2024-03-02T07:30:00Z"}
	]`)

	result, err := f.service.ImportActivities(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, service.ImportResult{Imported: 1, Invalid: 1}, result)

	_, err = f.repos.Activity.GetByStravaID(ctx, 201)
	assert.Error(t, err)
}

func TestImportService_NotConnected(t *testing.T) {
	f := newImportFixture(t, 0)

	_, err := f.service.ImportActivities(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotConnected)
	assert.Equal(t, 0, f.fake.ActivityCalls())
}

func TestImportService_RefreshRejected(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, 0)
	user, _ := testutil.NewUserBuilder().Build(t, f.repos)
	testutil.NewCredentialBuilder().
		WithUser(user.ID).
		ExpiresAt(fixedNow.Add(-time.Hour)).
		Build(t, f.repos)
	f.fake.FailToken(http.StatusUnauthorized)
	f.fake.SetActivities(sampleActivities)

	result, err := f.service.ImportActivities(ctx, user.ID)
	assert.ErrorIs(t, err, service.ErrNotConnected)
	assert.ErrorIs(t, err, service.ErrRefreshFailed)
	assert.Equal(t, service.ImportResult{}, result)
	assert.Equal(t, 1, f.fake.TokenCalls())
	assert.Equal(t, 0, f.fake.ActivityCalls())
}

func TestImportService_ExpiredTokenIsRefreshedBeforeFetch(t *testing.T) {
	ctx := context.Background()
	f := newImportFixture(t, 0)
	user, _ := testutil.NewUserBuilder().Build(t, f.repos)
	testutil.NewCredentialBuilder().
		WithUser(user.ID).
		WithTokens("old", "old-refresh").
		ExpiresAt(fixedNow.Add(-time.Minute)).
		Build(t, f.repos)
	f.fake.SetNextToken("A2", "R2", fixedNow.Add(6*time.Hour))

	_, err := f.service.ImportActivities(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.TokenCalls())
	assert.Equal(t, "A2", f.fake.LastAuthorization)
}

func TestImportService_FetchFailed(t *testing.T) {
	f := newImportFixture(t, 0)
	f.fake.FailActivities(http.StatusUnauthorized)

	result, err := f.service.ImportActivities(context.Background(), f.userID)
	assert.ErrorIs(t, err, service.ErrFetchFailed)
	assert.Equal(t, service.ImportResult{}, result)
	assert.Equal(t, 0, f.store.ActivityCount())
}

func TestImportService_PublishFailureDoesNotFailImport(t *testing.T) {
	f := newImportFixture(t, 0)
	f.publisher.Err = errors.New("broker unavailable")
	f.fake.SetActivities(sampleActivities)

	result, err := f.service.ImportActivities(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
}

func TestImportService_StoreFailureStopsImport(t *testing.T) {
	f := newImportFixture(t, 0)
	f.store.CreateErr = errors.New("connection reset")
	f.fake.SetActivities(sampleActivities)

	result, err := f.service.ImportActivities(context.Background(), f.userID)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrFetchFailed)
	assert.Equal(t, 0, result.Imported)
	assert.Empty(t, f.publisher.Events())
}
