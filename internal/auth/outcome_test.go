package auth

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Outcome
	}{
		{
			name: "complete marker",
			url:  "https://www.stremio.com/?login-trakt-complete",
			want: OutcomeComplete,
		},
		{
			name: "complete marker with extra query",
			url:  "https://www.stremio.com/?login-trakt-complete&utm=x",
			want: OutcomeComplete,
		},
		{
			name: "complete marker in fragment route",
			url:  "https://web.stremio.com/#/login-trakt-complete",
			want: OutcomeComplete,
		},
		{
			name: "complete marker inside return-to parameter",
			url:  "https://trakt.tv/auth/signin?return_to=https%3A%2F%2Fwww.stremio.com%2F%3Flogin-trakt-complete",
			want: OutcomeUnknown,
		},
		{
			name: "complete marker as a parameter value",
			url:  "https://trakt.tv/error?next=login-trakt-complete",
			want: OutcomeUnknown,
		},
		{
			name: "callback with code",
			url:  "https://www.strem.io/trakt/auth_cb?code=9f8e7d",
			want: OutcomePending,
		},
		{
			name: "callback with trailing slash",
			url:  "https://www.strem.io/trakt/auth_cb/?code=9f8e7d&state=1",
			want: OutcomePending,
		},
		{
			name: "callback with empty code",
			url:  "https://www.strem.io/trakt/auth_cb?code=",
			want: OutcomeUnknown,
		},
		{
			name: "callback without code",
			url:  "https://www.strem.io/trakt/auth_cb?error=access_denied",
			want: OutcomeUnknown,
		},
		{
			name: "code on another path",
			url:  "https://www.strem.io/other?code=abc",
			want: OutcomeUnknown,
		},
		{
			name: "still on consent page",
			url:  "https://api.trakt.tv/oauth/authorize?client_id=abc&response_type=code",
			want: OutcomeUnknown,
		},
		{
			name: "empty",
			url:  "",
			want: OutcomeUnknown,
		},
		{
			name: "unparseable",
			url:  "http://[::1",
			want: OutcomeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.url, DefaultMarkers); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomMarkers(t *testing.T) {
	m := Markers{Complete: "linked=1"}
	if got := Classify("https://example.com/?linked=1", m); got != OutcomeComplete {
		t.Errorf("Classify() = %v, want %v", got, OutcomeComplete)
	}
	if got := Classify("https://www.strem.io/trakt/auth_cb?code=x", m); got != OutcomeUnknown {
		t.Errorf("Classify() without callback marker = %v, want %v", got, OutcomeUnknown)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{
		OutcomeComplete: "complete",
		OutcomePending:  "likely complete via callback",
		OutcomeUnknown:  "unknown",
	} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
