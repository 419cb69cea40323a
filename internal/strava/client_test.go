package strava_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/strava"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *strava.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return strava.NewClient(strava.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/api/v1/strava/callback",
		APIBaseURL:   server.URL + "/api/v3",
		OAuthBaseURL: server.URL + "/oauth",
		Timeout:      5 * time.Second,
	})
}

func TestClient_RefreshToken(t *testing.T) {
	var form url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_at":    1709300000,
			"athlete":       map[string]interface{}{"id": 99},
		})
	})

	token, err := client.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "old-refresh", form.Get("refresh_token"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))

	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.Equal(t, int64(99), token.Athlete.ID)
	assert.Equal(t, time.Unix(1709300000, 0).UTC(), token.Expiry())
}

func TestClient_ExchangeCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "a",
			"refresh_token": "r",
			"expires_at":    1,
			"athlete":       map[string]interface{}{"id": 7},
		})
	})

	token, err := client.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, int64(7), token.Athlete.ID)
}

func TestClient_RefreshTokenSendsOneRequest(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Empty(t, r.Header.Get("Authorization"), "credentials travel in the form")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token_type":    "Bearer",
			"access_token":  "a",
			"refresh_token": "r",
			"expires_in":    21600,
			"expires_at":    1709321600,
		})
	})

	token, err := client.RefreshToken(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1709321600), token.ExpiresAt, "expires_at wins over expires_in")
	assert.Zero(t, token.Athlete.ID)
}

func TestClient_TokenResponseMissingTokens(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"a","expires_at":1}`))
	})

	_, err := client.ExchangeCode(context.Background(), "code")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, strava.ErrUnexpectedStatus))
}

func TestClient_TokenRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad Request"}`, http.StatusBadRequest)
	})

	_, err := client.RefreshToken(context.Background(), "revoked")
	require.Error(t, err)
	assert.True(t, errors.Is(err, strava.ErrUnexpectedStatus))

	var statusErr *strava.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestClient_ListActivities(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/athlete/activities", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		w.Write([]byte(`[
			{"id": 2, "type": "Ride", "distance": 20000.5, "moving_time": 3600, "start_date_local": "2024-03-02T09:00:00Z", "calories": 512.5},
			{"id": 1, "type": "Run", "distance": 5000, "moving_time": 1500, "start_date_local": "2024-03-01T08:00:00Z"}
		]`))
	})

	activities, err := client.ListActivities(context.Background(), "token-123", 0)
	require.NoError(t, err)
	require.Len(t, activities, 2)

	assert.Equal(t, int64(2), activities[0].ID)
	assert.Equal(t, "Ride", activities[0].Type)
	require.NotNil(t, activities[0].Calories)
	assert.Equal(t, 512.5, *activities[0].Calories)
	assert.Contains(t, string(activities[0].Raw), `"id": 2`)

	assert.Nil(t, activities[1].Calories)
	start, err := activities[1].StartDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC), start)
}

func TestClient_ListActivitiesUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListActivities(context.Background(), "expired", 30)
	assert.True(t, errors.Is(err, strava.ErrUnexpectedStatus))
}

func TestClient_AuthCodeURL(t *testing.T) {
	client := strava.NewClient(strava.Config{
		ClientID:    "12345",
		RedirectURI: "http://localhost:8080/api/v1/strava/callback",
	})

	raw := client.AuthCodeURL("state-token")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "www.strava.com", parsed.Host)
	assert.Equal(t, "/oauth/authorize", parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "12345", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "state-token", q.Get("state"))
	assert.Equal(t, "read,activity:read_all", q.Get("scope"))
	assert.Equal(t, "auto", q.Get("approval_prompt"))
}
