package service

import (
	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/events"
	"github.com/dom/athlete-log/internal/repository"
	"go.uber.org/zap"
)

type Services struct {
	Auth       *AuthService
	Identity   *IdentityService
	Credential *CredentialService
	Import     *ImportService
	Activity   *ActivityService
	Stats      *StatsService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, client StravaAPI, publisher events.Publisher, logger *zap.Logger) *Services {
	auth := NewAuthService(repos.User, repos.Session, cfg, logger)
	credential := NewCredentialService(repos.Credential, client, cfg, logger)

	return &Services{
		Auth:       auth,
		Identity:   NewIdentityService(repos.User, auth, cfg, logger),
		Credential: credential,
		Import:     NewImportService(credential, repos.Activity, client, publisher, cfg.StravaPageSize, logger),
		Activity:   NewActivityService(repos.Activity, publisher, cfg.StrictActivityInput, logger),
		Stats:      NewStatsService(repos.Activity, credential),
	}
}
