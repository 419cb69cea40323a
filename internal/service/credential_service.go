package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/observability"
	"github.com/dom/athlete-log/internal/repository"
	"github.com/dom/athlete-log/internal/strava"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotConnected  = errors.New("strava account not connected")
	ErrRefreshFailed = errors.New("strava token refresh failed")
	ErrConnectFailed = errors.New("strava authorization failed")
)

// StravaAPI is the subset of the Strava client the services use.
type StravaAPI interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error)
	ListActivities(ctx context.Context, accessToken string, perPage int) ([]strava.Activity, error)
}

// CredentialService owns each user's Strava token pair: it stores the grant
// on connect and hands out a usable access token, refreshing it on expiry.
type CredentialService struct {
	repo   repository.CredentialRepository
	client StravaAPI
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func NewCredentialService(repo repository.CredentialRepository, client StravaAPI, cfg *config.Config, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		repo:   repo,
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for expiry checks and state tokens.
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	s.now = now
	return s
}

// GetValidCredential returns an access token that is valid at the time of the
// call. An expired token is refreshed once; on success the new access token,
// refresh token and expiry are stored together. A failed refresh leaves the
// stored credential untouched and returns ErrRefreshFailed.
func (s *CredentialService) GetValidCredential(ctx context.Context, userID uuid.UUID) (string, error) {
	cred, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotConnected
		}
		return "", err
	}

	now := s.now()
	if !cred.Expired(now) {
		return cred.AccessToken, nil
	}

	token, err := s.client.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		observability.RecordTokenRefresh(false)
		s.logger.Warn("strava token refresh failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	observability.RecordTokenRefresh(true)

	cred.AccessToken = token.AccessToken
	cred.RefreshToken = token.RefreshToken
	cred.ExpiresAt = token.Expiry()
	cred.UpdatedAt = now

	if err := s.repo.Update(ctx, cred); err != nil {
		return "", fmt.Errorf("store refreshed credential: %w", err)
	}

	s.logger.Debug("strava token refreshed",
		zap.String("user_id", userID.String()),
		zap.Time("expires_at", cred.ExpiresAt),
	)
	return cred.AccessToken, nil
}

// AuthorizationURL returns the Strava consent URL for userID. The state
// parameter identifies the user when Strava redirects back.
func (s *CredentialService) AuthorizationURL(userID uuid.UUID) (string, error) {
	state, err := signState(s.cfg.JWTSecret, purposeStravaConnect, userID.String(), s.now())
	if err != nil {
		return "", err
	}
	return s.client.AuthCodeURL(state), nil
}

// UserFromState resolves the user a Strava callback belongs to.
func (s *CredentialService) UserFromState(state string) (uuid.UUID, error) {
	subject, err := parseState(s.cfg.JWTSecret, purposeStravaConnect, state, s.now())
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, ErrInvalidState
	}
	return userID, nil
}

// Connect exchanges an authorization code and stores the grant, replacing any
// credential the user already had.
func (s *CredentialService) Connect(ctx context.Context, userID uuid.UUID, code string) (*domain.StravaCredential, error) {
	token, err := s.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	now := s.now()
	cred := &domain.StravaCredential{
		ID:           uuid.New(),
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry(),
		AthleteID:    token.Athlete.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	s.logger.Info("strava account connected",
		zap.String("user_id", userID.String()),
		zap.Int64("athlete_id", cred.AthleteID),
	)
	return cred, nil
}

// Disconnect forgets the user's credential. It is a no-op when none exists.
func (s *CredentialService) Disconnect(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	AthleteID int64      `json:"athleteId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s *CredentialService) Status(ctx context.Context, userID uuid.UUID) (*ConnectionStatus, error) {
	cred, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ConnectionStatus{}, nil
		}
		return nil, err
	}
	return &ConnectionStatus{
		Connected: true,
		AthleteID: cred.AthleteID,
		ExpiresAt: &cred.ExpiresAt,
	}, nil
}
