package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/recordshelf/scrobble-gateway/internal/lastfm"
	"github.com/recordshelf/scrobble-gateway/internal/session"
)

// trackSpacing is the emulated gap between album tracks. Album
// submissions end at "now" and count backward, so the history reads as
// one contiguous listening session.
const trackSpacing = 3 * time.Minute

type scrobbleTrackRequest struct {
	Artist    string `json:"artist"`
	Track     string `json:"track"`
	Album     string `json:"album,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type scrobbleTrackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type scrobbleAlbumRequest struct {
	Artist string   `json:"artist"`
	Album  string   `json:"album"`
	Tracks []string `json:"tracks"`
}

type trackResult struct {
	Track   string `json:"track"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type albumSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type scrobbleAlbumResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Results []trackResult `json:"results"`
	Summary albumSummary  `json:"summary"`
}

// requireSession resolves the caller's authenticated session from the
// request cookie. Writes a 401 and returns nil when no usable session
// exists; no provider call is ever attempted without one.
func (h *Handlers) requireSession(w http.ResponseWriter, r *http.Request) *session.Record {
	id := session.IDFromRequest(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}

	record, err := h.sessions.GetSession(r.Context(), id)
	if err != nil || !record.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	return record
}

// ScrobbleTrack relays one play record (POST /api/scrobble/track). An
// explicit timestamp is used verbatim; otherwise the play is stamped
// "now".
func (h *Handlers) ScrobbleTrack(w http.ResponseWriter, r *http.Request) {
	record := h.requireSession(w, r)
	if record == nil {
		return
	}

	var req scrobbleTrackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" || strings.TrimSpace(req.Track) == "" {
		writeError(w, http.StatusBadRequest, "artist and track are required")
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	result, err := h.provider.Scrobble(r.Context(), record.SessionKey, lastfm.Track{
		Artist:    req.Artist,
		Title:     req.Track,
		Album:     req.Album,
		Timestamp: timestamp,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("track", req.Track).Msg("scrobble failed")
		writeError(w, http.StatusBadGateway, "scrobble failed")
		return
	}

	writeJSON(w, http.StatusOK, scrobbleTrackResponse{
		Success: result.Accepted,
		Message: result.Message,
	})
}

// ScrobbleAlbum relays a whole album (POST /api/scrobble/album). All
// timestamps are assigned before the first provider call so transport
// reordering can't scramble the emulated listening order; one rejected
// track never aborts the rest.
func (h *Handlers) ScrobbleAlbum(w http.ResponseWriter, r *http.Request) {
	record := h.requireSession(w, r)
	if record == nil {
		return
	}

	var req scrobbleAlbumRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" || strings.TrimSpace(req.Album) == "" || len(req.Tracks) == 0 {
		writeError(w, http.StatusBadRequest, "artist, album and tracks are required")
		return
	}

	submissions := buildAlbumSubmissions(req.Artist, req.Album, req.Tracks, time.Now())

	results := make([]trackResult, 0, len(submissions))
	summary := albumSummary{Total: len(submissions)}

	for _, track := range submissions {
		result, err := h.provider.Scrobble(r.Context(), record.SessionKey, track)
		switch {
		case err != nil:
			h.logger.Warn().Err(err).Str("track", track.Title).Msg("album track scrobble failed")
			results = append(results, trackResult{Track: track.Title, Error: "scrobble failed"})
			summary.Failed++
		case !result.Accepted:
			results = append(results, trackResult{Track: track.Title, Error: result.Message})
			summary.Failed++
		default:
			results = append(results, trackResult{Track: track.Title, Success: true})
			summary.Successful++
		}
	}

	writeJSON(w, http.StatusOK, scrobbleAlbumResponse{
		Success: true,
		Message: albumMessage(summary),
		Results: results,
		Summary: summary,
	})
}

// NowPlaying marks a track as currently playing (POST
// /api/scrobble/now-playing). Transient on the provider side; no
// timestamp involved.
func (h *Handlers) NowPlaying(w http.ResponseWriter, r *http.Request) {
	record := h.requireSession(w, r)
	if record == nil {
		return
	}

	var req scrobbleTrackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Artist) == "" || strings.TrimSpace(req.Track) == "" {
		writeError(w, http.StatusBadRequest, "artist and track are required")
		return
	}

	if err := h.provider.UpdateNowPlaying(r.Context(), record.SessionKey, lastfm.Track{
		Artist: req.Artist,
		Title:  req.Track,
		Album:  req.Album,
	}); err != nil {
		h.logger.Error().Err(err).Str("track", req.Track).Msg("now playing update failed")
		writeError(w, http.StatusBadGateway, "now playing update failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// buildAlbumSubmissions assigns one timestamp per track, spaced
// trackSpacing apart, with the final track ending at now. Timestamps
// are strictly increasing in submission order and pairwise distinct.
func buildAlbumSubmissions(artist, album string, titles []string, now time.Time) []lastfm.Track {
	n := len(titles)
	tracks := make([]lastfm.Track, 0, n)
	for i, title := range titles {
		tracks = append(tracks, lastfm.Track{
			Artist:    artist,
			Title:     title,
			Album:     album,
			Timestamp: now.Unix() - int64(n-1-i)*int64(trackSpacing.Seconds()),
		})
	}
	return tracks
}

func albumMessage(s albumSummary) string {
	if s.Failed == 0 {
		return "Album scrobbled successfully"
	}
	if s.Successful == 0 {
		return "All tracks failed to scrobble"
	}
	return "Album scrobbled with some failures"
}
