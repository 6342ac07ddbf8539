package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
		secret string
		want   string
	}{
		{
			name: "sorted concatenation",
			params: map[string]string{
				"method":  "auth.getSession",
				"api_key": "key123",
				"token":   "tok456",
			},
			secret: "secret",
			want:   md5hex("api_keykey123methodauth.getSessiontokentok456secret"),
		},
		{
			name:   "empty params",
			params: map[string]string{},
			secret: "secret",
			want:   md5hex("secret"),
		},
		{
			name: "empty values are included",
			params: map[string]string{
				"album":  "",
				"artist": "Cher",
			},
			secret: "s",
			want:   md5hex("albumartistChers"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sign(tt.params, tt.secret)
			if got != tt.want {
				t.Errorf("Sign() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	params := map[string]string{
		"method":    "track.scrobble",
		"artist":    "Radiohead",
		"track":     "Paranoid Android",
		"timestamp": "1700000000",
		"api_key":   "key",
		"sk":        "sessionkey",
	}

	first := Sign(params, "secret")
	second := Sign(params, "secret")
	if first != second {
		t.Errorf("Sign() not deterministic: %s != %s", first, second)
	}

	// Insertion order must not matter: rebuild the map in a different order.
	reordered := map[string]string{
		"sk":        "sessionkey",
		"api_key":   "key",
		"timestamp": "1700000000",
		"track":     "Paranoid Android",
		"artist":    "Radiohead",
		"method":    "track.scrobble",
	}
	if got := Sign(reordered, "secret"); got != first {
		t.Errorf("Sign() depends on insertion order: %s != %s", got, first)
	}
}

func TestSignedValues(t *testing.T) {
	values := signedValues(map[string]string{
		"method":  "auth.getSession",
		"api_key": "key",
		"token":   "tok",
	}, "secret")

	if values.Get("format") != "json" {
		t.Errorf("format = %q, want json", values.Get("format"))
	}

	// The signature must cover only the signable set, never format.
	want := Sign(map[string]string{
		"method":  "auth.getSession",
		"api_key": "key",
		"token":   "tok",
	}, "secret")
	if values.Get("api_sig") != want {
		t.Errorf("api_sig = %q, want %q", values.Get("api_sig"), want)
	}
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
