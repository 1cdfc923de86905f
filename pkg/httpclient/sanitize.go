package httpclient

import (
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

// secretFragments are matched case-insensitively against query parameter
// names, as substrings, so "api_key", "API-Key" and "x_auth_token" are all
// caught.
var secretFragments = []string{
	"key",
	"token",
	"password",
	"auth",
	"secret",
	"credential",
}

// sanitizeURL renders a URL safe for logging: secret-bearing query
// parameters are redacted and any userinfo component is dropped.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	safe := *u
	safe.User = nil

	q := safe.Query()
	changed := false
	for name := range q {
		if secretParam(name) {
			q.Set(name, redacted)
			changed = true
		}
	}
	if changed {
		safe.RawQuery = q.Encode()
	}
	return safe.String()
}

func secretParam(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range secretFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
