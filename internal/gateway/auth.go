package gateway

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/recordshelf/scrobble-gateway/internal/config"
	"github.com/recordshelf/scrobble-gateway/internal/session"
)

// Handlers serves the gateway's HTTP endpoints.
type Handlers struct {
	provider Provider
	sessions *session.Manager
	lastfm   config.LastFMConfig
	logger   zerolog.Logger
}

// NewHandlers wires the auth and scrobble endpoints.
func NewHandlers(provider Provider, sessions *session.Manager, lastfmCfg config.LastFMConfig, logger zerolog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		sessions: sessions,
		lastfm:   lastfmCfg,
		logger:   logger,
	}
}

// userPayload is the authenticated user block in status responses.
type userPayload struct {
	Username     string          `json:"username"`
	SessionKey   string          `json:"sessionKey"`
	UserInfo     json.RawMessage `json:"userInfo,omitempty"`
	UserAvatar   string          `json:"userAvatar,omitempty"`
	LastAlbumArt string          `json:"lastAlbumArt,omitempty"`
}

type statusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *userPayload `json:"user,omitempty"`
}

// Status reports the caller's auth state (GET /api/auth/status). It
// never fails toward the caller: any store trouble reads as
// unauthenticated.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, session.IDFromRequest(r))
}

// Exchange is the cross-origin session bootstrap (GET
// /api/auth/exchange). It performs the status lookup with an explicit
// session id for clients that cannot see the gateway's cookie.
func (h *Handlers) Exchange(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeFailure(w, http.StatusBadRequest, "missing session parameter")
		return
	}
	h.writeStatus(w, r, id)
}

func (h *Handlers) writeStatus(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}

	record, err := h.sessions.GetSession(r.Context(), id)
	if err != nil || !record.Authenticated() {
		writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User: &userPayload{
			Username:     record.Username,
			SessionKey:   record.SessionKey,
			UserInfo:     record.UserInfo,
			UserAvatar:   record.UserAvatar,
			LastAlbumArt: record.LastAlbumArt,
		},
	})
}

type loginResponse struct {
	AuthURL string `json:"authUrl"`
}

// Login starts the provider auth flow (POST /api/auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.lastfm.Configured() {
		h.logger.Error().Msg("login attempted without provider credentials configured")
		writeError(w, http.StatusInternalServerError, "scrobbling is not configured")
		return
	}

	sessionID, err := session.NewSessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	stateID := session.NewStateID()

	redirectOrigin, isEmbed := redirectTarget(r)
	now := time.Now().UnixMilli()

	pending := &session.Record{
		Type:    session.StatePending,
		ID:      sessionID,
		Created: now,
	}
	if err := h.sessions.PutSession(r.Context(), pending); err != nil {
		h.logger.Error().Err(err).Msg("storing pending session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	state := &session.AuthState{
		Type:           session.StateAuthPending,
		SessionID:      sessionID,
		RedirectOrigin: redirectOrigin,
		IsEmbed:        isEmbed,
		Created:        now,
	}
	if err := h.sessions.PutAuthState(r.Context(), stateID, state); err != nil {
		h.logger.Error().Err(err).Msg("storing auth state")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	session.SetCookie(w, r, sessionID)
	writeJSON(w, http.StatusOK, loginResponse{
		AuthURL: h.provider.AuthURL(h.lastfm.CallbackURL, stateID),
	})
}

// Callback handles the provider redirect (GET /api/auth/callback): it
// exchanges the one-time token, fills in the user's profile and most
// recent artwork, promotes the pending session, and sends the browser
// back to where the flow started.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	stateID := r.URL.Query().Get("state")
	if token == "" || stateID == "" {
		writeFailure(w, http.StatusBadRequest, "missing token or state")
		return
	}

	state, err := h.sessions.ConsumeAuthState(r.Context(), stateID)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "unknown or expired auth state")
		return
	}

	providerSession, err := h.provider.GetSession(r.Context(), token)
	if err != nil {
		h.logger.Error().Err(err).Msg("token exchange failed")
		writeFailure(w, http.StatusInternalServerError, "token exchange failed")
		return
	}

	userInfo, err := h.provider.GetUserInfo(r.Context(), providerSession.Key)
	if err != nil {
		h.logger.Error().Err(err).Msg("profile fetch failed")
		writeFailure(w, http.StatusInternalServerError, "profile fetch failed")
		return
	}

	// Most recent play is decoration; its absence never fails the flow.
	lastAlbumArt := ""
	if recent, err := h.provider.GetRecentTracks(r.Context(), providerSession.Name, 1); err != nil {
		h.logger.Warn().Err(err).Msg("recent tracks fetch failed")
	} else if len(recent) > 0 {
		lastAlbumArt = recent[0].Image.BestURL()
	}

	userInfoRaw, err := json.Marshal(userInfo)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "profile fetch failed")
		return
	}

	record := &session.Record{
		Type:         session.StateAuthenticated,
		ID:           state.SessionID,
		Username:     providerSession.Name,
		SessionKey:   providerSession.Key,
		UserInfo:     userInfoRaw,
		UserAvatar:   userInfo.Image.BestURL(),
		LastAlbumArt: lastAlbumArt,
		Created:      time.Now().UnixMilli(),
	}
	if err := h.sessions.PutSession(r.Context(), record); err != nil {
		h.logger.Error().Err(err).Msg("storing authenticated session")
		writeFailure(w, http.StatusInternalServerError, "failed to store session")
		return
	}

	h.logger.Info().Str("username", record.Username).Msg("session authenticated")
	http.Redirect(w, r, callbackRedirectURL(state), http.StatusTemporaryRedirect)
}

// Logout ends the session (POST /api/auth/logout). The cookie is
// cleared even when no record exists.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if id := session.IDFromRequest(r); id != "" {
		if err := h.sessions.DeleteSession(r.Context(), id); err != nil {
			h.logger.Warn().Err(err).Msg("deleting session on logout")
		}
	}
	session.ClearCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// redirectTarget derives the post-auth redirect origin from the Referer
// header, falling back to the request's own origin when the header is
// absent or unparseable (privacy-hardened browsers strip it). The embed
// flag is set when the flow started from an embedded page.
func redirectTarget(r *http.Request) (origin string, isEmbed bool) {
	if referer := r.Header.Get("Referer"); referer != "" {
		if u, err := url.Parse(referer); err == nil && u.Scheme != "" && u.Host != "" {
			return u.Scheme + "://" + u.Host, strings.Contains(u.Path, "/embed")
		}
	}

	scheme := "https"
	if r.TLS == nil {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else {
			scheme = "http"
		}
	}
	return scheme + "://" + r.Host, false
}

// callbackRedirectURL picks the browser's destination after a completed
// auth flow. Embedded flows land on the origin's embed completion page
// so the opener can close the popup. When the origin is local
// development, cookies set on the gateway origin aren't visible to the
// app, so the session id travels once as a query parameter.
func callbackRedirectURL(state *session.AuthState) string {
	target := state.RedirectOrigin
	if state.IsEmbed {
		target += "/embed/auth-complete"
	}

	if u, err := url.Parse(state.RedirectOrigin); err == nil {
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + "session=" + url.QueryEscape(state.SessionID)
		}
	}
	return target
}
