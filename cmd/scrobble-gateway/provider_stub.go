package main

import (
	"context"

	"github.com/recordshelf/scrobble-gateway/internal/lastfm"
)

// unconfiguredProvider stands in when no provider credentials are set.
// Every call fails with ErrMissingCredentials, which handlers surface
// as a configuration error.
type unconfiguredProvider struct{}

func (unconfiguredProvider) AuthURL(string, string) string {
	return ""
}

func (unconfiguredProvider) GetSession(context.Context, string) (*lastfm.Session, error) {
	return nil, lastfm.ErrMissingCredentials
}

func (unconfiguredProvider) GetUserInfo(context.Context, string) (*lastfm.UserInfo, error) {
	return nil, lastfm.ErrMissingCredentials
}

func (unconfiguredProvider) GetRecentTracks(context.Context, string, int) ([]lastfm.RecentTrack, error) {
	return nil, lastfm.ErrMissingCredentials
}

func (unconfiguredProvider) Scrobble(context.Context, string, lastfm.Track) (*lastfm.ScrobbleResult, error) {
	return nil, lastfm.ErrMissingCredentials
}

func (unconfiguredProvider) UpdateNowPlaying(context.Context, string, lastfm.Track) error {
	return lastfm.ErrMissingCredentials
}
