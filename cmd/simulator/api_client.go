package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient handles HTTP communication with the backend
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching backend

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Activity struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	ActivityType string   `json:"activityType"`
	Distance     *float64 `json:"distance"`
	Time         *string  `json:"time"`
	Pace         *string  `json:"pace"`
	Calories     *float64 `json:"calories"`
	MonthYear    string   `json:"monthYear"`
}

type Warning struct {
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type ActivityResponse struct {
	Activity Activity  `json:"activity"`
	Warnings []Warning `json:"warnings"`
}

type MonthSummary struct {
	Month    string     `json:"month"`
	Distance float64    `json:"distance"`
	Calories float64    `json:"calories"`
	Records  []Activity `json:"records"`
}

type Dashboard struct {
	Months          []MonthSummary `json:"months"`
	TotalDistance   float64        `json:"totalDistance"`
	TotalCalories   float64        `json:"totalCalories"`
	StravaConnected bool           `json:"stravaConnected"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

// RegisterUser creates a new user account
func (c *APIClient) RegisterUser(baseName string) (*User, string, error) {
	username := fmt.Sprintf("%s_%d", baseName, time.Now().UnixNano()%100000)

	body := map[string]string{
		"email":           username + "@example.com",
		"username":        username,
		"password":        "testpassword123",
		"confirmPassword": "testpassword123",
	}

	resp, err := c.post("/auth/register", body, "")
	if err != nil {
		return nil, "", fmt.Errorf("register request failed: %w", err)
	}
	defer resp.Body.Close()

	var result AuthResponse
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return nil, "", fmt.Errorf("register: %w", err)
	}

	return &result.User, result.AccessToken, nil
}

// Login signs in an existing user
func (c *APIClient) Login(email, password string) (*User, string, error) {
	resp, err := c.post("/auth/login", map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return nil, "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var result AuthResponse
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}

	return &result.User, result.AccessToken, nil
}

// CreateActivity logs one manual activity
func (c *APIClient) CreateActivity(token string, activity map[string]interface{}) (*ActivityResponse, error) {
	resp, err := c.post("/activities", activity, token)
	if err != nil {
		return nil, fmt.Errorf("create activity request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ActivityResponse
	if err := decode(resp, http.StatusCreated, &result); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}

	return &result, nil
}

// GetDashboard returns the monthly statistics
func (c *APIClient) GetDashboard(token string) (*Dashboard, error) {
	resp, err := c.get("/stats/monthly", token)
	if err != nil {
		return nil, fmt.Errorf("dashboard request failed: %w", err)
	}
	defer resp.Body.Close()

	var result Dashboard
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}

	return &result, nil
}

// ImportStrava triggers a Strava import for the user
func (c *APIClient) ImportStrava(token string) (*ImportResult, error) {
	resp, err := c.post("/strava/import", nil, token)
	if err != nil {
		return nil, fmt.Errorf("import request failed: %w", err)
	}
	defer resp.Body.Close()

	var result ImportResult
	if err := decode(resp, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	return &result, nil
}

// HTTP helpers

func decode(resp *http.Response, expected int, v interface{}) error {
	if resp.StatusCode != expected {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *APIClient) get(path, token string) (*http.Response, error) {
	return c.do(http.MethodGet, path, nil, token)
}

func (c *APIClient) post(path string, body interface{}, token string) (*http.Response, error) {
	return c.do(http.MethodPost, path, body, token)
}

func (c *APIClient) do(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
