// Package strava is a small client for the parts of the Strava API the
// application uses: the OAuth token endpoint and the athlete activity list.
package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultAPIBaseURL   = "https://www.strava.com/api/v3"
	DefaultOAuthBaseURL = "https://www.strava.com/oauth"
	DefaultPageSize     = 30

	// StartDateLayout is the format of start_date_local.
	StartDateLayout = "2006-01-02T15:04:05Z"
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("strava: unexpected response status")

// StatusError reports a non-200 response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("strava %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	OAuthBaseURL string
	Timeout      time.Duration
}

type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.OAuthBaseURL == "" {
		cfg.OAuthBaseURL = DefaultOAuthBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.OAuthBaseURL = strings.TrimRight(cfg.OAuthBaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			// Strava expects a comma separated scope list, not a space separated one.
			Scopes: []string{"read,activity:read_all"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.OAuthBaseURL + "/authorize",
				TokenURL:  cfg.OAuthBaseURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// TokenResponse is the body of a successful /oauth/token call.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Athlete      struct {
		ID int64 `json:"id"`
	} `json:"athlete"`
}

// Expiry converts the epoch-seconds expiry into a time.
func (t *TokenResponse) Expiry() time.Time {
	return time.Unix(t.ExpiresAt, 0).UTC()
}

// Activity is one entry of the athlete activity list. Raw holds the
// undecoded JSON object.
type Activity struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	StartDateLocal string   `json:"start_date_local"`
	Distance       float64  `json:"distance"`
	MovingTime     int      `json:"moving_time"`
	Calories       *float64 `json:"calories"`

	Raw json.RawMessage `json:"-"`
}

// StartDate parses start_date_local.
func (a *Activity) StartDate() (time.Time, error) {
	return time.Parse(StartDateLayout, a.StartDateLocal)
}

// AuthCodeURL builds the URL the user is sent to for authorizing the application.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// ExchangeCode trades an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}
	return newTokenResponse(tok)
}

// RefreshToken trades a refresh token for a new token pair. Exactly one
// refresh request is made.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := c.oauth.TokenSource(c.oauthContext(ctx), expired).Token()
	if err != nil {
		return nil, tokenError(err)
	}
	return newTokenResponse(tok)
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// newTokenResponse reads the Strava specific fields from the raw token body.
func newTokenResponse(tok *oauth2.Token) (*TokenResponse, error) {
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, fmt.Errorf("token response missing tokens")
	}

	resp := &TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if expiresAt, ok := int64Field(tok.Extra("expires_at")); ok {
		resp.ExpiresAt = expiresAt
	} else if !tok.Expiry.IsZero() {
		resp.ExpiresAt = tok.Expiry.Unix()
	}
	if athlete, ok := tok.Extra("athlete").(map[string]interface{}); ok {
		resp.Athlete.ID, _ = int64Field(athlete["id"])
	}
	return resp, nil
}

func int64Field(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		body := retrieveErr.Body
		if len(body) > 512 {
			body = body[:512]
		}
		return &StatusError{
			Endpoint:   "oauth/token",
			StatusCode: retrieveErr.Response.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return fmt.Errorf("token request: %w", err)
}

// ListActivities returns the most recent page of the athlete's activities,
// in the order Strava returned them.
func (c *Client) ListActivities(ctx context.Context, accessToken string, perPage int) ([]Activity, error) {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}

	endpoint := c.cfg.APIBaseURL + "/athlete/activities?" + url.Values{
		"per_page": {strconv.Itoa(perPage)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build activities request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("activities request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("athlete/activities", resp)
	}

	var raws []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}

	activities := make([]Activity, 0, len(raws))
	for i, raw := range raws {
		var a Activity
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode activity %d: %w", i, err)
		}
		a.Raw = raw
		activities = append(activities, a)
	}

	return activities, nil
}

func statusError(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
