package lastfm

import (
	"github.com/goccy/go-json"
)

// Image size names as reported by the provider, ordered smallest to
// largest. Unknown sizes rank below known ones.
var imageSizeRank = map[string]int{
	"small":      1,
	"medium":     2,
	"large":      3,
	"extralarge": 4,
	"mega":       5,
}

// Image is one sized avatar or artwork variant.
type Image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

// ImageRef tolerates both response shapes the provider uses for image
// fields: a single URL string, or an array of sized variants.
type ImageRef struct {
	Single   string
	Variants []Image
}

// UnmarshalJSON accepts either a JSON string or an array of sized images.
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		r.Single = single
		r.Variants = nil
		return nil
	}

	var variants []Image
	if err := json.Unmarshal(data, &variants); err != nil {
		return err
	}
	r.Single = ""
	r.Variants = variants
	return nil
}

// BestURL returns the largest available image URL, or "" when the
// reference carries no usable URL.
func (r ImageRef) BestURL() string {
	if r.Single != "" {
		return r.Single
	}

	best := ""
	bestRank := -1
	for _, img := range r.Variants {
		if img.URL == "" {
			continue
		}
		rank := imageSizeRank[img.Size]
		if rank > bestRank {
			best = img.URL
			bestRank = rank
		}
	}
	return best
}

// Session is the provider's long-lived credential issued by the token
// exchange.
type Session struct {
	Name       string `json:"name"`
	Key        string `json:"key"`
	Subscriber int    `json:"subscriber"`
}

// UserInfo is the authenticated user's profile.
type UserInfo struct {
	Name       string `json:"name"`
	RealName   string `json:"realname"`
	URL        string `json:"url"`
	Country    string `json:"country"`
	PlayCount  string `json:"playcount"`
	Registered struct {
		UnixTime string `json:"unixtime"`
	} `json:"registered"`
	Image ImageRef `json:"image"`
}

// RecentTrack is one entry from the user's play history.
type RecentTrack struct {
	Name       string
	Artist     string
	Album      string
	Image      ImageRef
	NowPlaying bool
}

// Track is one play submission: who played what, and when the play
// started (epoch seconds).
type Track struct {
	Artist    string
	Title     string
	Album     string
	Timestamp int64
}

// ScrobbleResult reports the provider's verdict on one submitted track.
type ScrobbleResult struct {
	Accepted bool
	Ignored  bool
	Message  string
}

// Wire shapes below are internal to response decoding.

type sessionResponse struct {
	Session Session `json:"session"`
}

type userInfoResponse struct {
	User UserInfo `json:"user"`
}

type recentTracksResponse struct {
	RecentTracks struct {
		Track []recentTrackEntry `json:"track"`
	} `json:"recenttracks"`
}

type recentTrackEntry struct {
	Name   string `json:"name"`
	Artist struct {
		Name string `json:"#text"`
	} `json:"artist"`
	Album struct {
		Name string `json:"#text"`
	} `json:"album"`
	Image ImageRef `json:"image"`
	Attr  *struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

type scrobbleResponse struct {
	Scrobbles struct {
		Attr struct {
			Accepted int `json:"accepted"`
			Ignored  int `json:"ignored"`
		} `json:"@attr"`
		Scrobble json.RawMessage `json:"scrobble"`
	} `json:"scrobbles"`
}

type scrobbleEntry struct {
	IgnoredMessage struct {
		Code string `json:"code"`
		Text string `json:"#text"`
	} `json:"ignoredMessage"`
}

// apiError is the provider's error envelope.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
