package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/recordshelf/scrobble-gateway/internal/config"
	"github.com/recordshelf/scrobble-gateway/internal/lastfm"
	"github.com/recordshelf/scrobble-gateway/internal/session"
	"github.com/recordshelf/scrobble-gateway/internal/store"
)

// fakeProvider records calls and returns canned responses.
type fakeProvider struct {
	lastState     string
	session       *lastfm.Session
	sessionErr    error
	userInfo      *lastfm.UserInfo
	userInfoErr   error
	recent        []lastfm.RecentTrack
	recentErr     error
	scrobbleFn    func(track lastfm.Track) (*lastfm.ScrobbleResult, error)
	scrobbled     []lastfm.Track
	nowPlayingErr error
}

func (f *fakeProvider) AuthURL(callbackURL, state string) string {
	f.lastState = state
	return fmt.Sprintf("https://provider.example/auth?cb=%s&state=%s",
		url.QueryEscape(callbackURL), url.QueryEscape(state))
}

func (f *fakeProvider) GetSession(_ context.Context, _ string) (*lastfm.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	if f.session != nil {
		return f.session, nil
	}
	return &lastfm.Session{Name: "rj", Key: "sk-test"}, nil
}

func (f *fakeProvider) GetUserInfo(_ context.Context, _ string) (*lastfm.UserInfo, error) {
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	if f.userInfo != nil {
		return f.userInfo, nil
	}
	return &lastfm.UserInfo{Name: "rj"}, nil
}

func (f *fakeProvider) GetRecentTracks(_ context.Context, _ string, _ int) ([]lastfm.RecentTrack, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeProvider) Scrobble(_ context.Context, _ string, track lastfm.Track) (*lastfm.ScrobbleResult, error) {
	f.scrobbled = append(f.scrobbled, track)
	if f.scrobbleFn != nil {
		return f.scrobbleFn(track)
	}
	return &lastfm.ScrobbleResult{Accepted: true, Message: "Scrobbled successfully"}, nil
}

func (f *fakeProvider) UpdateNowPlaying(_ context.Context, _ string, _ lastfm.Track) error {
	return f.nowPlayingErr
}

var _ Provider = (*fakeProvider)(nil)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8787,
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
		},
		LastFM: config.LastFMConfig{
			APIKey:      "test-key",
			Secret:      "test-secret",
			CallbackURL: "https://gateway.example/api/auth/callback",
		},
	}
}

type testGateway struct {
	router   http.Handler
	provider *fakeProvider
	sessions *session.Manager
	store    *store.Memory
}

func newTestGateway(t *testing.T, mutate func(*config.Config)) *testGateway {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	mem := store.NewMemory()
	sessions := session.NewManager(mem)
	provider := &fakeProvider{}
	server := NewServer(cfg, zerolog.Nop(), provider, sessions)

	return &testGateway{
		router:   server.Router(),
		provider: provider,
		sessions: sessions,
		store:    mem,
	}
}

// seedAuthenticated stores an authenticated session and returns its id.
func (g *testGateway) seedAuthenticated(t *testing.T) string {
	t.Helper()

	id, err := session.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	record := &session.Record{
		Type:       session.StateAuthenticated,
		ID:         id,
		Username:   "rj",
		SessionKey: "sk-test",
		Created:    time.Now().UnixMilli(),
	}
	if err := g.sessions.PutSession(context.Background(), record); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
	return id
}

func (g *testGateway) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

func withSessionCookie(req *http.Request, id string) *http.Request {
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: id})
	return req
}
