package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/strava"
)

// StravaFake serves the Strava token and activity endpoints from memory and
// records how they were called.
type StravaFake struct {
	Server *httptest.Server

	mu               sync.Mutex
	tokenCalls       int
	activityCalls    int
	tokenStatus      int
	activitiesStatus int
	activities       string
	nextAccess       string
	nextRefresh      string
	nextExpiry       time.Time
	athleteID        int64

	LastGrantType     string
	LastRefreshToken  string
	LastCode          string
	LastAuthorization string
	LastPerPage       string
}

func NewStravaFake(t *testing.T) *StravaFake {
	t.Helper()

	f := &StravaFake{
		tokenStatus:      http.StatusOK,
		activitiesStatus: http.StatusOK,
		activities:       "[]",
		nextAccess:       "fresh-access-token",
		nextRefresh:      "fresh-refresh-token",
		nextExpiry:       time.Now().Add(6 * time.Hour),
		athleteID:        4242,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", f.handleToken)
	mux.HandleFunc("/api/v3/athlete/activities", f.handleActivities)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	return f
}

// Config returns a client configuration pointing at the fake.
func (f *StravaFake) Config() strava.Config {
	return strava.Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURI:  "http://localhost/api/v1/strava/callback",
		APIBaseURL:   f.Server.URL + "/api/v3",
		OAuthBaseURL: f.Server.URL + "/oauth",
		Timeout:      5 * time.Second,
	}
}

func (f *StravaFake) Client() *strava.Client {
	return strava.NewClient(f.Config())
}

// SetActivities sets the JSON array returned by the activity list.
func (f *StravaFake) SetActivities(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = raw
}

// SetNextToken sets the token pair returned by the next token exchange.
func (f *StravaFake) SetNextToken(access, refresh string, expiresAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextAccess = access
	f.nextRefresh = refresh
	f.nextExpiry = expiresAt
}

// FailToken makes the token endpoint answer with status.
func (f *StravaFake) FailToken(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
}

// FailActivities makes the activity endpoint answer with status.
func (f *StravaFake) FailActivities(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activitiesStatus = status
}

func (f *StravaFake) TokenCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls
}

func (f *StravaFake) ActivityCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activityCalls
}

func (f *StravaFake) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokenCalls++
	_ = r.ParseForm()
	f.LastGrantType = r.PostForm.Get("grant_type")
	f.LastRefreshToken = r.PostForm.Get("refresh_token")
	f.LastCode = r.PostForm.Get("code")

	if f.tokenStatus != http.StatusOK {
		http.Error(w, `{"message":"Bad Request","errors":[{"resource":"RefreshToken","code":"invalid"}]}`, f.tokenStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token_type":    "Bearer",
		"access_token":  f.nextAccess,
		"refresh_token": f.nextRefresh,
		"expires_at":    f.nextExpiry.Unix(),
		"athlete":       map[string]interface{}{"id": f.athleteID},
	})
}

func (f *StravaFake) handleActivities(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.activityCalls++
	f.LastAuthorization = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.LastPerPage = r.URL.Query().Get("per_page")

	if f.activitiesStatus != http.StatusOK {
		http.Error(w, `{"message":"Authorization Error"}`, f.activitiesStatus)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(f.activities))
}
