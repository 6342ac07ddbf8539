package session

import (
	"net"
	"net/http"
	"strings"
)

// CookieName carries the session id between browser and gateway.
const CookieName = "session_id"

// IDFromRequest extracts the session id from the request cookie, or ""
// when absent.
func IDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetCookie attaches the session cookie to the response. The cookie is
// HTTP-only and SameSite=Strict; Secure is dropped only for loopback
// hosts so local development works over plain HTTP.
func SetCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   !isLoopbackHost(r.Host),
		MaxAge:   int(SessionTTL.Seconds()),
	})
}

// ClearCookie expires the session cookie immediately. Always safe to
// call, whether or not a record exists.
func ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   !isLoopbackHost(r.Host),
		MaxAge:   -1,
	})
}

// isLoopbackHost reports whether host (with optional port) is a local
// development address.
func isLoopbackHost(host string) bool {
	h := host
	if splitHost, _, err := net.SplitHostPort(host); err == nil {
		h = splitHost
	}
	h = strings.ToLower(h)
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}
