package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dom/athlete-log/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const stateCookie = "oauth_state"

// OAuthHandler drives the Google and GitHub login redirects.
type OAuthHandler struct {
	identityService *service.IdentityService
	secureCookies   bool
	logger          *zap.Logger
}

func NewOAuthHandler(identityService *service.IdentityService, secureCookies bool, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{identityService: identityService, secureCookies: secureCookies, logger: logger}
}

func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	authURL, state, err := h.identityService.AuthCodeURL(provider)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	if reason := query.Get("error"); reason != "" {
		http.Error(w, "Login was cancelled: "+reason, http.StatusBadRequest)
		return
	}

	state := query.Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		http.Error(w, "Invalid login state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Authorization code required", http.StatusBadRequest)
		return
	}

	result, err := h.identityService.Complete(r.Context(), provider, state, code)
	if err != nil {
		h.writeProviderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newAuthResponse(result))
}

func (h *OAuthHandler) writeProviderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownProvider):
		http.Error(w, "Unknown login provider", http.StatusNotFound)
	case errors.Is(err, service.ErrProviderNotConfigured):
		http.Error(w, "Login provider not configured", http.StatusServiceUnavailable)
	case errors.Is(err, service.ErrInvalidState):
		http.Error(w, "Invalid login state", http.StatusBadRequest)
	case errors.Is(err, service.ErrEmailNotPublic):
		http.Error(w, "Your GitHub email is private. Make it public or register with a password.", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidCredentials):
		http.Error(w, "Account disabled", http.StatusUnauthorized)
	case errors.Is(err, service.ErrIdentityFailed):
		h.logger.Warn("login provider failed", zap.Error(err))
		http.Error(w, "Login provider rejected the request", http.StatusBadGateway)
	default:
		h.logger.Error("federated login failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
