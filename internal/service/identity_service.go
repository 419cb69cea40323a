package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"gorm.io/gorm"
)

// Federated login providers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

var (
	ErrUnknownProvider       = errors.New("unknown login provider")
	ErrProviderNotConfigured = errors.New("login provider not configured")
	ErrIdentityFailed        = errors.New("login provider rejected the request")
	ErrEmailNotPublic        = errors.New("github email is not public")
)

const (
	googleProfileURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubProfileURL = "https://api.github.com/user"
)

type externalProfile struct {
	ID    string
	Email string
	Login string
}

type identityProvider struct {
	oauth      *oauth2.Config
	profileURL string
	purpose    string
	decode     func([]byte) (*externalProfile, error)
}

// IdentityService signs users in through Google or GitHub and maps the
// external account onto a local user.
type IdentityService struct {
	users     repository.UserRepository
	auth      *AuthService
	cfg       *config.Config
	providers map[string]*identityProvider
	logger    *zap.Logger
	now       func() time.Time
}

func NewIdentityService(users repository.UserRepository, auth *AuthService, cfg *config.Config, logger *zap.Logger) *IdentityService {
	s := &IdentityService{
		users:     users,
		auth:      auth,
		cfg:       cfg,
		providers: make(map[string]*identityProvider),
		logger:    logger,
		now:       time.Now,
	}

	base := strings.TrimRight(cfg.OAuthRedirectBaseURL, "/")
	if cfg.GoogleConfigured() {
		s.providers[ProviderGoogle] = &identityProvider{
			oauth: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  base + "/google/callback",
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     endpoints.Google,
			},
			profileURL: googleProfileURL,
			purpose:    purposeGoogleLogin,
			decode:     decodeGoogleProfile,
		}
	}
	if cfg.GitHubConfigured() {
		s.providers[ProviderGitHub] = &identityProvider{
			oauth: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  base + "/github/callback",
				Scopes:       []string{"user:email"},
				Endpoint:     endpoints.GitHub,
			},
			profileURL: githubProfileURL,
			purpose:    purposeGitHubLogin,
			decode:     decodeGitHubProfile,
		}
	}

	return s
}

// WithEndpoint points a configured provider at other token and profile URLs.
func (s *IdentityService) WithEndpoint(provider string, endpoint oauth2.Endpoint, profileURL string) *IdentityService {
	if p, ok := s.providers[provider]; ok {
		p.oauth.Endpoint = endpoint
		p.profileURL = profileURL
	}
	return s
}

func (s *IdentityService) provider(name string) (*identityProvider, error) {
	if name != ProviderGoogle && name != ProviderGitHub {
		return nil, ErrUnknownProvider
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, ErrProviderNotConfigured
	}
	return p, nil
}

// AuthCodeURL returns the provider consent URL and the state value embedded
// in it. Callers keep the state (in a cookie) to match it on callback.
func (s *IdentityService) AuthCodeURL(provider string) (string, string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", "", err
	}

	state, err := signState(s.cfg.JWTSecret, p.purpose, uuid.NewString(), s.now())
	if err != nil {
		return "", "", err
	}
	return p.oauth.AuthCodeURL(state), state, nil
}

// Complete finishes a provider login: it checks state, exchanges code, loads
// the external profile and returns a session for the matching local user.
func (s *IdentityService) Complete(ctx context.Context, provider, state, code string) (*AuthResult, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	if _, err := parseState(s.cfg.JWTSecret, p.purpose, state, s.now()); err != nil {
		return nil, err
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityFailed, err)
	}

	profile, err := s.fetchProfile(ctx, p, token)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, provider, profile)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.auth.IssueTokens(ctx, user)
}

func (s *IdentityService) fetchProfile(ctx context.Context, p *identityProvider, token *oauth2.Token) (*externalProfile, error) {
	client := p.oauth.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch profile: %w", ErrIdentityFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile status %d", ErrIdentityFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read profile: %w", ErrIdentityFailed, err)
	}
	return p.decode(body)
}

func decodeGoogleProfile(body []byte) (*externalProfile, error) {
	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %w", ErrIdentityFailed, err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: incomplete google profile", ErrIdentityFailed)
	}
	return &externalProfile{ID: info.ID, Email: info.Email}, nil
}

func decodeGitHubProfile(body []byte) (*externalProfile, error) {
	var info struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %w", ErrIdentityFailed, err)
	}
	if info.ID == 0 {
		return nil, fmt.Errorf("%w: incomplete github profile", ErrIdentityFailed)
	}
	if info.Email == "" {
		return nil, ErrEmailNotPublic
	}
	return &externalProfile{ID: strconv.FormatInt(info.ID, 10), Email: info.Email, Login: info.Login}, nil
}

// resolveUser finds the user by provider id, then by email (linking the
// provider id), and otherwise creates one.
func (s *IdentityService) resolveUser(ctx context.Context, provider string, profile *externalProfile) (*domain.User, error) {
	byProvider := s.users.GetByGoogleID
	if provider == ProviderGitHub {
		byProvider = s.users.GetByGitHubID
	}

	user, err := byProvider(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := normalizeEmail(profile.Email)
	externalID := profile.ID

	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		linkProvider(user, provider, &externalID)
		user.UpdatedAt = s.now()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("linked login provider",
			zap.String("user_id", user.ID.String()),
			zap.String("provider", provider),
		)
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	base := profile.Login
	if base == "" {
		base, _, _ = strings.Cut(email, "@")
	}
	username, err := s.availableUsername(ctx, base)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user = &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	linkProvider(user, provider, &externalID)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("provider", provider),
	)
	return user, nil
}

func linkProvider(user *domain.User, provider string, externalID *string) {
	if provider == ProviderGitHub {
		user.GitHubID = externalID
		return
	}
	user.GoogleID = externalID
}

// availableUsername returns base, or base with the first free numeric suffix.
func (s *IdentityService) availableUsername(ctx context.Context, base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "athlete"
	}

	candidate := base
	for i := 2; i <= 100; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + strconv.Itoa(i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}
