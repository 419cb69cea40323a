package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertActivity compares the user-visible fields of a stored record.
func AssertActivity(t *testing.T, record *domain.ActivityRecord, activityType string, distance float64, elapsed, pace, monthYear string) {
	t.Helper()

	require.NotNil(t, record)
	assert.Equal(t, activityType, record.ActivityType, "activity type")
	if assert.NotNil(t, record.Distance, "distance") {
		assert.InDelta(t, distance, *record.Distance, 1e-9, "distance")
	}
	if assert.NotNil(t, record.Time, "time") {
		assert.Equal(t, elapsed, *record.Time, "time")
	}
	if pace == "" {
		assert.Nil(t, record.Pace, "pace")
	} else if assert.NotNil(t, record.Pace, "pace") {
		assert.Equal(t, pace, *record.Pace, "pace")
	}
	assert.Equal(t, monthYear, record.MonthYear, "month bucket")
}
