package lastfm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// Scrobble submits one play record via the signed track.scrobble call.
// The returned result distinguishes accepted from ignored submissions;
// an ignored submission carries the provider's reason.
func (c *Client) Scrobble(ctx context.Context, sessionKey string, track Track) (*ScrobbleResult, error) {
	params := map[string]string{
		"artist":    track.Artist,
		"track":     track.Title,
		"timestamp": strconv.FormatInt(track.Timestamp, 10),
		"sk":        sessionKey,
	}
	if track.Album != "" {
		params["album"] = track.Album
	}

	body, err := c.doPost(ctx, c.signedParams("track.scrobble", params))
	if err != nil {
		return nil, fmt.Errorf("scrobbling track: %w", err)
	}

	var resp scrobbleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing scrobble response: %w", err)
	}

	result := &ScrobbleResult{
		Accepted: resp.Scrobbles.Attr.Accepted > 0,
		Ignored:  resp.Scrobbles.Attr.Ignored > 0,
	}

	// A single-track scrobble response nests the entry as an object; the
	// provider uses an array for multi-track batches.
	if len(resp.Scrobbles.Scrobble) > 0 {
		var entry scrobbleEntry
		if err := json.Unmarshal(resp.Scrobbles.Scrobble, &entry); err != nil {
			var entries []scrobbleEntry
			if err := json.Unmarshal(resp.Scrobbles.Scrobble, &entries); err == nil && len(entries) > 0 {
				entry = entries[0]
			}
		}
		if entry.IgnoredMessage.Text != "" {
			result.Message = entry.IgnoredMessage.Text
		}
	}

	if result.Accepted {
		result.Message = "Scrobbled successfully"
	} else if result.Message == "" {
		result.Message = "Scrobble ignored by provider"
	}

	return result, nil
}

// UpdateNowPlaying marks a track as currently playing via the signed
// track.updateNowPlaying call. Now-playing status is transient on the
// provider side and needs no timestamp.
func (c *Client) UpdateNowPlaying(ctx context.Context, sessionKey string, track Track) error {
	params := map[string]string{
		"artist": track.Artist,
		"track":  track.Title,
		"sk":     sessionKey,
	}
	if track.Album != "" {
		params["album"] = track.Album
	}

	if _, err := c.doPost(ctx, c.signedParams("track.updateNowPlaying", params)); err != nil {
		return fmt.Errorf("updating now playing: %w", err)
	}
	return nil
}
