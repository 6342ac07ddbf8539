package gateway

import (
	"context"

	"github.com/recordshelf/scrobble-gateway/internal/lastfm"
)

// Provider is the slice of the music-tracking API the gateway consumes.
// Satisfied by *lastfm.Client; faked in handler tests.
type Provider interface {
	AuthURL(callbackURL, state string) string
	GetSession(ctx context.Context, token string) (*lastfm.Session, error)
	GetUserInfo(ctx context.Context, sessionKey string) (*lastfm.UserInfo, error)
	GetRecentTracks(ctx context.Context, user string, limit int) ([]lastfm.RecentTrack, error)
	Scrobble(ctx context.Context, sessionKey string, track lastfm.Track) (*lastfm.ScrobbleResult, error)
	UpdateNowPlaying(ctx context.Context, sessionKey string, track lastfm.Track) error
}

var _ Provider = (*lastfm.Client)(nil)
