package lastfm

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
)

// Sign computes the api_sig value for a set of request parameters.
//
// Per the provider's signing contract: parameter names are sorted
// lexicographically, each name is concatenated directly with its value
// (no separators), the shared secret is appended, and the MD5 digest of
// the whole string is returned as lowercase hex.
//
// The format and callback parameters are never part of the signature;
// callers must pass only the signable parameter set.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b []byte
	for _, k := range keys {
		b = append(b, k...)
		b = append(b, params[k]...)
	}
	b = append(b, secret...)

	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// signedValues builds url.Values from the signable parameters, adds the
// api_sig, and appends format=json (excluded from signing).
func signedValues(params map[string]string, secret string) url.Values {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("api_sig", Sign(params, secret))
	values.Set("format", "json")
	return values
}
