package auth

import (
	"net/url"
	"strings"
)

// Outcome is the classification of the URL a run finished on.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	// OutcomePending means the callback received a code; the exchange may
	// still be finishing on the server.
	OutcomePending
	OutcomeComplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomePending:
		return "likely complete via callback"
	default:
		return "unknown"
	}
}

// Markers are the URL patterns Classify looks for.
type Markers struct {
	// Complete is matched within the URL path and the path part of the
	// fragment, or as the start of a query parameter. A parameter value
	// that merely contains it, such as a return-to URL, does not count.
	Complete string
	// CallbackPath must equal the URL path, and the query must carry a
	// non-empty code.
	CallbackPath string
}

// DefaultMarkers are the markers Stremio's Trakt integration redirects to.
var DefaultMarkers = Markers{
	Complete:     "login-trakt-complete",
	CallbackPath: "/trakt/auth_cb",
}

// Classify maps a final URL to exactly one Outcome. The complete marker
// wins over the callback marker.
func Classify(rawURL string, m Markers) Outcome {
	if rawURL == "" {
		return OutcomeUnknown
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return OutcomeUnknown
	}
	if m.Complete != "" && hasMarker(u, m.Complete) {
		return OutcomeComplete
	}
	if m.CallbackPath == "" {
		return OutcomeUnknown
	}
	if strings.TrimRight(u.Path, "/") == strings.TrimRight(m.CallbackPath, "/") && u.Query().Get("code") != "" {
		return OutcomePending
	}
	return OutcomeUnknown
}

func hasMarker(u *url.URL, marker string) bool {
	frag, _, _ := strings.Cut(u.Fragment, "?")
	if strings.Contains(u.Path, marker) || strings.Contains(frag, marker) {
		return true
	}
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part, err := url.QueryUnescape(part); err == nil && strings.HasPrefix(part, marker) {
			return true
		}
	}
	return false
}
