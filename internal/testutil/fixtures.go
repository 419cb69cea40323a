package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	email    string
	username string
	password string
	googleID *string
	githubID *string
	inactive bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		email:    fmt.Sprintf("athlete_%s@example.com", suffix),
		username: fmt.Sprintf("athlete_%s", suffix),
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.username = username
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithGoogleID creates a federated user without a password.
func (b *UserBuilder) WithGoogleID(id string) *UserBuilder {
	b.googleID = &id
	b.password = ""
	return b
}

// WithGitHubID creates a federated user without a password.
func (b *UserBuilder) WithGitHubID(id string) *UserBuilder {
	b.githubID = &id
	b.password = ""
	return b
}

func (b *UserBuilder) Inactive() *UserBuilder {
	b.inactive = true
	return b
}

// Build stores the user and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, repos *repository.Repositories) (*domain.User, string) {
	t.Helper()

	var hash string
	if b.password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash password: %v", err)
		}
		hash = string(hashed)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        b.email,
		Username:     b.username,
		PasswordHash: hash,
		GoogleID:     b.googleID,
		GitHubID:     b.githubID,
		IsActive:     !b.inactive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := repos.User.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if b.inactive {
		// The column defaults to true, so a false value has to be written explicitly.
		user.IsActive = false
		if err := repos.User.Update(context.Background(), user); err != nil {
			t.Fatalf("failed to deactivate user: %v", err)
		}
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	User struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// BuildAndAuthenticate registers the user through the API and returns the
// user and an access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":           b.email,
		"username":        b.username,
		"password":        b.password,
		"confirmPassword": b.password,
	})

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	userID, _ := uuid.Parse(authResp.User.ID)
	user := &domain.User{
		ID:       userID,
		Email:    authResp.User.Email,
		Username: authResp.User.Username,
	}

	return user, authResp.AccessToken
}

// ActivityBuilder creates activity records
type ActivityBuilder struct {
	userID       uuid.UUID
	date         time.Time
	activityType string
	distance     *float64
	elapsed      *string
	calories     *float64
	stravaID     *int64
}

func NewActivityBuilder() *ActivityBuilder {
	return &ActivityBuilder{
		date:         time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		activityType: "Running",
	}
}

func (b *ActivityBuilder) WithUser(userID uuid.UUID) *ActivityBuilder {
	b.userID = userID
	return b
}

func (b *ActivityBuilder) WithDate(date time.Time) *ActivityBuilder {
	b.date = date
	return b
}

func (b *ActivityBuilder) WithType(activityType string) *ActivityBuilder {
	b.activityType = activityType
	return b
}

func (b *ActivityBuilder) WithDistance(km float64) *ActivityBuilder {
	b.distance = &km
	return b
}

func (b *ActivityBuilder) WithTime(elapsed string) *ActivityBuilder {
	b.elapsed = &elapsed
	return b
}

func (b *ActivityBuilder) WithCalories(calories float64) *ActivityBuilder {
	b.calories = &calories
	return b
}

func (b *ActivityBuilder) WithStravaID(id int64) *ActivityBuilder {
	b.stravaID = &id
	return b
}

// Build stores the record. A user is created when none was given.
func (b *ActivityBuilder) Build(t *testing.T, repos *repository.Repositories) *domain.ActivityRecord {
	t.Helper()

	if b.userID == uuid.Nil {
		user, _ := NewUserBuilder().Build(t, repos)
		b.userID = user.ID
	}

	record := &domain.ActivityRecord{
		ID:           uuid.New(),
		UserID:       b.userID,
		ActivityType: b.activityType,
		Distance:     b.distance,
		Time:         b.elapsed,
		Calories:     b.calories,
		StravaID:     b.stravaID,
	}
	record.SetDate(b.date)
	record.Recalculate()

	if err := repos.Activity.Create(context.Background(), record); err != nil {
		t.Fatalf("failed to create activity: %v", err)
	}
	return record
}

// CredentialBuilder creates Strava credentials
type CredentialBuilder struct {
	userID       uuid.UUID
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	athleteID    int64
}

func NewCredentialBuilder() *CredentialBuilder {
	return &CredentialBuilder{
		accessToken:  "stored-access-token",
		refreshToken: "stored-refresh-token",
		expiresAt:    time.Now().Add(time.Hour),
		athleteID:    4242,
	}
}

func (b *CredentialBuilder) WithUser(userID uuid.UUID) *CredentialBuilder {
	b.userID = userID
	return b
}

func (b *CredentialBuilder) WithTokens(access, refresh string) *CredentialBuilder {
	b.accessToken = access
	b.refreshToken = refresh
	return b
}

func (b *CredentialBuilder) ExpiresAt(at time.Time) *CredentialBuilder {
	b.expiresAt = at
	return b
}

func (b *CredentialBuilder) Build(t *testing.T, repos *repository.Repositories) *domain.StravaCredential {
	t.Helper()

	if b.userID == uuid.Nil {
		user, _ := NewUserBuilder().Build(t, repos)
		b.userID = user.ID
	}

	cred := &domain.StravaCredential{
		ID:           uuid.New(),
		UserID:       b.userID,
		AccessToken:  b.accessToken,
		RefreshToken: b.refreshToken,
		ExpiresAt:    b.expiresAt,
		AthleteID:    b.athleteID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repos.Credential.Upsert(context.Background(), cred); err != nil {
		t.Fatalf("failed to create credential: %v", err)
	}
	return cred
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends req with a client that does not follow redirects.
func Do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
