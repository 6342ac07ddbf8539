package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordshelf/scrobble-gateway/internal/lastfm"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestScrobbleTrack_RequiresSession(t *testing.T) {
	g := newTestGateway(t, nil)

	w := g.do(postJSON("/api/scrobble/track", `{"artist":"Cher","track":"Believe"}`))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, g.provider.scrobbled, "no provider call without a session")
}

func TestScrobbleTrack_UnknownSessionRejected(t *testing.T) {
	g := newTestGateway(t, nil)

	req := withSessionCookie(postJSON("/api/scrobble/track", `{"artist":"Cher","track":"Believe"}`), "ghost")
	w := g.do(req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, g.provider.scrobbled)
}

func TestScrobbleTrack_Validation(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing artist", `{"track":"Believe"}`},
		{"missing track", `{"artist":"Cher"}`},
		{"blank artist", `{"artist":"  ","track":"Believe"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := g.do(withSessionCookie(postJSON("/api/scrobble/track", tt.body), id))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestScrobbleTrack_ExplicitTimestampVerbatim(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)

	req := withSessionCookie(postJSON("/api/scrobble/track",
		`{"artist":"Radiohead","track":"Paranoid Android","album":"OK Computer","timestamp":1700000000}`), id)
	w := g.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, g.provider.scrobbled, 1)
	assert.Equal(t, int64(1700000000), g.provider.scrobbled[0].Timestamp)
	assert.Equal(t, "OK Computer", g.provider.scrobbled[0].Album)

	var resp scrobbleTrackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestScrobbleTrack_DefaultsToNow(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)

	before := time.Now().Unix()
	w := g.do(withSessionCookie(postJSON("/api/scrobble/track", `{"artist":"Cher","track":"Believe"}`), id))
	after := time.Now().Unix()

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, g.provider.scrobbled, 1)

	ts := g.provider.scrobbled[0].Timestamp
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, after)
}

func TestScrobbleTrack_ProviderFailure(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)
	g.provider.scrobbleFn = func(lastfm.Track) (*lastfm.ScrobbleResult, error) {
		return nil, errors.New("provider down")
	}

	w := g.do(withSessionCookie(postJSON("/api/scrobble/track", `{"artist":"Cher","track":"Believe"}`), id))

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestScrobbleAlbum_Validation(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing artist", `{"album":"OK Computer","tracks":["Airbag"]}`},
		{"missing album", `{"artist":"Radiohead","tracks":["Airbag"]}`},
		{"empty tracks", `{"artist":"Radiohead","album":"OK Computer","tracks":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := g.do(withSessionCookie(postJSON("/api/scrobble/album", tt.body), id))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestScrobbleAlbum_Success(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)

	body := `{"artist":"Radiohead","album":"OK Computer","tracks":["Airbag","Paranoid Android","Subterranean Homesick Alien"]}`
	w := g.do(withSessionCookie(postJSON("/api/scrobble/album", body), id))

	require.Equal(t, http.StatusOK, w.Code)

	var resp scrobbleAlbumResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 3, resp.Summary.Successful)
	assert.Equal(t, 0, resp.Summary.Failed)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Airbag", resp.Results[0].Track)

	// Timestamps: strictly increasing in submission order, pairwise
	// distinct, spaced three minutes apart, ending near now.
	require.Len(t, g.provider.scrobbled, 3)
	for i := 1; i < len(g.provider.scrobbled); i++ {
		gap := g.provider.scrobbled[i].Timestamp - g.provider.scrobbled[i-1].Timestamp
		assert.Equal(t, int64(180), gap, "tracks %d and %d", i-1, i)
	}
	last := g.provider.scrobbled[2].Timestamp
	assert.InDelta(t, time.Now().Unix(), last, 5)
}

func TestScrobbleAlbum_PartialFailureContinues(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)
	g.provider.scrobbleFn = func(track lastfm.Track) (*lastfm.ScrobbleResult, error) {
		if track.Title == "Fitter Happier" {
			return nil, errors.New("rejected")
		}
		return &lastfm.ScrobbleResult{Accepted: true, Message: "Scrobbled successfully"}, nil
	}

	body := `{"artist":"Radiohead","album":"OK Computer","tracks":["Airbag","Fitter Happier","Karma Police"]}`
	w := g.do(withSessionCookie(postJSON("/api/scrobble/album", body), id))

	require.Equal(t, http.StatusOK, w.Code)

	var resp scrobbleAlbumResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// One bad track must not abort the rest, and the top-level success
	// reflects the batch itself rather than individual tracks.
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 2, resp.Summary.Successful)
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Equal(t, resp.Summary.Total, resp.Summary.Successful+resp.Summary.Failed)

	require.Len(t, resp.Results, 3)
	assert.False(t, resp.Results[1].Success)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.True(t, resp.Results[2].Success, "batch continued past the failure")

	require.Len(t, g.provider.scrobbled, 3, "all tracks attempted")
}

func TestScrobbleAlbum_IgnoredTrackCountsAsFailed(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)
	g.provider.scrobbleFn = func(track lastfm.Track) (*lastfm.ScrobbleResult, error) {
		return &lastfm.ScrobbleResult{Ignored: true, Message: "Artist was ignored"}, nil
	}

	body := `{"artist":"Unknown","album":"Untitled","tracks":["One"]}`
	w := g.do(withSessionCookie(postJSON("/api/scrobble/album", body), id))

	require.Equal(t, http.StatusOK, w.Code)

	var resp scrobbleAlbumResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Equal(t, "Artist was ignored", resp.Results[0].Error)
}

func TestBuildAlbumSubmissions_TimestampsAssignedUpFront(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tracks := buildAlbumSubmissions("Radiohead", "OK Computer",
		[]string{"Airbag", "Paranoid Android", "Karma Police", "Electioneering"}, now)

	require.Len(t, tracks, 4)

	// Last track ends at now; earlier tracks count backward.
	assert.Equal(t, int64(1700000000), tracks[3].Timestamp)
	assert.Equal(t, int64(1700000000-180), tracks[2].Timestamp)
	assert.Equal(t, int64(1700000000-360), tracks[1].Timestamp)
	assert.Equal(t, int64(1700000000-540), tracks[0].Timestamp)

	seen := map[int64]bool{}
	for _, track := range tracks {
		assert.False(t, seen[track.Timestamp], "duplicate timestamp %d", track.Timestamp)
		seen[track.Timestamp] = true
		assert.Equal(t, "OK Computer", track.Album)
	}
}

func TestNowPlaying(t *testing.T) {
	g := newTestGateway(t, nil)
	id := g.seedAuthenticated(t)

	w := g.do(withSessionCookie(postJSON("/api/scrobble/now-playing", `{"artist":"Cher","track":"Believe"}`), id))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	// Unauthenticated callers are rejected before any provider call.
	w = g.do(postJSON("/api/scrobble/now-playing", `{"artist":"Cher","track":"Believe"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
