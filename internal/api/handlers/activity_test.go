package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ActivityJSON struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	ActivityType string   `json:"activityType"`
	Distance     *float64 `json:"distance"`
	Time         *string  `json:"time"`
	Pace         *string  `json:"pace"`
	Calories     *float64 `json:"calories"`
	MonthYear    string   `json:"monthYear"`
	StravaID     *int64   `json:"stravaId"`
}

type Warning struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type ActivityEnvelope struct {
	Activity ActivityJSON `json:"activity"`
	Warnings []Warning    `json:"warnings"`
}

func TestActivityHandler_Create(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	tests := []struct {
		name           string
		token          string
		request        map[string]interface{}
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name:  "numbers and strings",
			token: token,
			request: map[string]interface{}{
				"date":         "2024-03-01",
				"activityType": "Running",
				"distance":     5,
				"time":         "00:25:00",
				"calories":     "300",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result ActivityEnvelope
				testutil.AssertJSONResponse(t, resp, &result)
				assert.NotEmpty(t, result.Activity.ID)
				assert.Equal(t, "Running", result.Activity.ActivityType)
				require.NotNil(t, result.Activity.Pace)
				assert.Equal(t, "05:00", *result.Activity.Pace)
				assert.Equal(t, "03-2024", result.Activity.MonthYear)
				require.NotNil(t, result.Activity.Calories)
				assert.Equal(t, 300.0, *result.Activity.Calories)
				assert.Nil(t, result.Activity.StravaID)
				assert.NotNil(t, result.Warnings)
				assert.Empty(t, result.Warnings)
			},
		},
		{
			name:  "malformed values are saved with warnings",
			token: token,
			request: map[string]interface{}{
				"date":     "2024-02-10",
				"distance": "five",
				"time":     "00:30:00",
				"calories": nil,
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result ActivityEnvelope
				testutil.AssertJSONResponse(t, resp, &result)
				require.Len(t, result.Warnings, 1)
				assert.Equal(t, "distance", result.Warnings[0].Field)
				assert.Equal(t, "five", result.Warnings[0].Value)
				require.NotNil(t, result.Activity.Distance)
				assert.Zero(t, *result.Activity.Distance)
				assert.Nil(t, result.Activity.Pace)
				assert.Equal(t, "02-2024", result.Activity.MonthYear)
			},
		},
		{
			name:           "missing token",
			token:          "",
			request:        map[string]interface{}{"distance": 5},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/activities"), tt.request, tt.token)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestActivityHandler_CreateInvalidBody(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/activities"), "not an object", token)
	resp := testutil.Do(t, req)
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestActivityHandler_CreateStrict(t *testing.T) {
	ts := testutil.NewTestServerWith(t, func(cfg *config.Config) {
		cfg.StrictActivityInput = true
	})
	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	req := testutil.CreateAuthenticatedRequest(t, http.MethodPost, ts.APIURL("/activities"), map[string]interface{}{
		"distance": "abc",
		"time":     "00:20:00",
	}, token)
	resp := testutil.Do(t, req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var result struct {
		Error  string    `json:"error"`
		Issues []Warning `json:"issues"`
	}
	testutil.AssertJSONResponse(t, resp, &result)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "distance", result.Issues[0].Field)

	records, err := ts.Repos.Activity.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestActivityHandler_GetUpdateDelete(t *testing.T) {
	ts := testutil.NewTestServer(t)
	owner, ownerToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)
	_, otherToken := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	record := testutil.NewActivityBuilder().
		WithUser(owner.ID).
		WithDate(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)).
		WithDistance(5).
		WithTime("00:25:00").
		Build(t, ts.Repos)
	url := ts.APIURL("/activities/" + record.ID.String())

	t.Run("owner can read", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, url, nil, ownerToken))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result ActivityJSON
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, record.ID.String(), result.ID)
		assert.Equal(t, "05:00", *result.Pace)
	})

	t.Run("another user sees not found", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, url, nil, otherToken))
		testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/activities/not-a-uuid"), nil, ownerToken))
		testutil.AssertStatusCode(t, resp, http.StatusBadRequest)
	})

	t.Run("owner can update", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodPut, url, map[string]interface{}{
			"date":         "2024-04-02",
			"activityType": "Cycling",
			"distance":     20,
			"time":         "00:40:00",
		}, ownerToken))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result ActivityEnvelope
		testutil.AssertJSONResponse(t, resp, &result)
		assert.Equal(t, "Cycling", result.Activity.ActivityType)
		assert.Equal(t, "02:00", *result.Activity.Pace)
		assert.Equal(t, "04-2024", result.Activity.MonthYear)
	})

	t.Run("another user cannot update", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodPut, url, map[string]interface{}{"distance": 1}, otherToken))
		testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	})

	t.Run("another user cannot delete", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodDelete, url, nil, otherToken))
		testutil.AssertStatusCode(t, resp, http.StatusForbidden)

		_, err := ts.Repos.Activity.GetByID(context.Background(), record.ID)
		require.NoError(t, err)
	})

	t.Run("owner can delete", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodDelete, url, nil, ownerToken))
		testutil.AssertStatusCode(t, resp, http.StatusNoContent)

		resp = testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodDelete, url, nil, ownerToken))
		testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/activities/"+uuid.NewString()), nil, ownerToken))
		testutil.AssertStatusCode(t, resp, http.StatusNotFound)
	})
}

func TestActivityHandler_List(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/activities"), nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty []ActivityJSON
	testutil.AssertJSONResponse(t, resp, &empty)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	older := testutil.NewActivityBuilder().WithUser(user.ID).
		WithDate(time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)).Build(t, ts.Repos)
	newer := testutil.NewActivityBuilder().WithUser(user.ID).
		WithDate(time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)).Build(t, ts.Repos)
	testutil.NewActivityBuilder().Build(t, ts.Repos)

	resp = testutil.Do(t, testutil.CreateAuthenticatedRequest(t, http.MethodGet, ts.APIURL("/activities"), nil, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []ActivityJSON
	testutil.AssertJSONResponse(t, resp, &records)
	require.Len(t, records, 2)
	assert.Equal(t, newer.ID.String(), records[0].ID)
	assert.Equal(t, older.ID.String(), records[1].ID)
}
