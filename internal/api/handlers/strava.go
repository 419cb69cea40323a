package handlers

import (
	"errors"
	"net/http"

	"github.com/dom/athlete-log/internal/api/middleware"
	"github.com/dom/athlete-log/internal/config"
	"github.com/dom/athlete-log/internal/service"
	"go.uber.org/zap"
)

type StravaHandler struct {
	credentialService *service.CredentialService
	importService     *service.ImportService
	cfg               *config.Config
	logger            *zap.Logger
}

func NewStravaHandler(credentialService *service.CredentialService, importService *service.ImportService, cfg *config.Config, logger *zap.Logger) *StravaHandler {
	return &StravaHandler{
		credentialService: credentialService,
		importService:     importService,
		cfg:               cfg,
		logger:            logger,
	}
}

type ConnectResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

type CallbackResponse struct {
	Connected bool  `json:"connected"`
	AthleteID int64 `json:"athleteId"`
}

func (h *StravaHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.credentialService.Status(r.Context(), userID)
	if err != nil {
		h.logger.Error("strava status failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *StravaHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if !h.cfg.StravaConfigured() {
		http.Error(w, "Strava is not configured", http.StatusServiceUnavailable)
		return
	}

	authURL, err := h.credentialService.AuthorizationURL(userID)
	if err != nil {
		h.logger.Error("strava authorization url failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{AuthorizationURL: authURL})
}

// Callback completes the Strava consent redirect. The signed state names the
// user, so the route needs no bearer token.
func (h *StravaHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		http.Error(w, "Strava authorization denied: "+reason, http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Authorization code required", http.StatusBadRequest)
		return
	}

	userID, err := h.credentialService.UserFromState(query.Get("state"))
	if err != nil {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	cred, err := h.credentialService.Connect(r.Context(), userID, code)
	if err != nil {
		if errors.Is(err, service.ErrConnectFailed) {
			h.logger.Warn("strava code exchange failed", zap.String("user_id", userID.String()), zap.Error(err))
			http.Error(w, "Strava rejected the authorization", http.StatusBadGateway)
			return
		}
		h.logger.Error("storing strava credential failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{Connected: true, AthleteID: cred.AthleteID})
}

func (h *StravaHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.importService.ImportActivities(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotConnected):
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:     "Strava is not connected. Please reconnect your account.",
				Reconnect: true,
			})
		case errors.Is(err, service.ErrFetchFailed):
			writeJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:     "Could not fetch activities from Strava. Please try again or reconnect.",
				Reconnect: true,
			})
		default:
			h.logger.Error("strava import failed", zap.String("user_id", userID.String()), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *StravaHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.credentialService.Disconnect(r.Context(), userID); err != nil {
		h.logger.Error("strava disconnect failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
