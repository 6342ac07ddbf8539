package lastfm

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
)

// AuthURL builds the provider authorization URL for the browser. The
// callback URL carries the state parameter so the callback can be
// correlated with the pending session across tab boundaries.
func (c *Client) AuthURL(callbackURL, state string) string {
	cb := callbackURL
	if state != "" {
		sep := "?"
		if u, err := url.Parse(callbackURL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		cb = callbackURL + sep + "state=" + url.QueryEscape(state)
	}

	values := url.Values{}
	values.Set("api_key", c.apiKey)
	values.Set("cb", cb)
	return c.authURL + "?" + values.Encode()
}

// GetSession exchanges a one-time auth token for a long-lived session
// key via the signed auth.getSession call.
func (c *Client) GetSession(ctx context.Context, token string) (*Session, error) {
	values := c.signedParams("auth.getSession", map[string]string{
		"token": token,
	})

	body, err := c.doGet(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("exchanging token: %w", err)
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing session response: %w", err)
	}
	if resp.Session.Key == "" {
		return nil, fmt.Errorf("session response missing key")
	}

	return &resp.Session, nil
}

// GetUserInfo fetches the authenticated user's profile via a signed
// user.getInfo call.
func (c *Client) GetUserInfo(ctx context.Context, sessionKey string) (*UserInfo, error) {
	values := c.signedParams("user.getInfo", map[string]string{
		"sk": sessionKey,
	})

	body, err := c.doGet(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}

	var resp userInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing user info response: %w", err)
	}

	return &resp.User, nil
}

// GetRecentTracks fetches the user's most recent plays. The provider
// marks an in-progress play with a nowplaying attribute, which is
// surfaced on the returned entries.
func (c *Client) GetRecentTracks(ctx context.Context, user string, limit int) ([]RecentTrack, error) {
	values := url.Values{}
	values.Set("method", "user.getRecentTracks")
	values.Set("api_key", c.apiKey)
	values.Set("user", user)
	values.Set("limit", fmt.Sprintf("%d", limit))
	values.Set("format", "json")

	body, err := c.doGet(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("fetching recent tracks: %w", err)
	}

	var resp recentTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing recent tracks response: %w", err)
	}

	tracks := make([]RecentTrack, 0, len(resp.RecentTracks.Track))
	for _, entry := range resp.RecentTracks.Track {
		tracks = append(tracks, RecentTrack{
			Name:       entry.Name,
			Artist:     entry.Artist.Name,
			Album:      entry.Album.Name,
			Image:      entry.Image,
			NowPlaying: entry.Attr != nil && entry.Attr.NowPlaying == "true",
		})
	}

	return tracks, nil
}
