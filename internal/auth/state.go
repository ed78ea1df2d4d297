package auth

import (
	"time"

	"github.com/rs/zerolog"
)

// State is a step of the authorization state machine:
//
//	Init → BrowserReady → AuthenticatedA → HandshakeStarted → [LoginB] →
//	ConsentResolved → Verified → [SignedOut] → Closed
type State int

const (
	StateInit State = iota
	StateBrowserReady
	StateAuthenticatedA
	StateHandshakeStarted
	StateLoginB
	StateConsentResolved
	StateVerified
	StateSignedOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateBrowserReady:
		return "BrowserReady"
	case StateAuthenticatedA:
		return "AuthenticatedA"
	case StateHandshakeStarted:
		return "HandshakeStarted"
	case StateLoginB:
		return "LoginB"
	case StateConsentResolved:
		return "ConsentResolved"
	case StateVerified:
		return "Verified"
	case StateSignedOut:
		return "SignedOut"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Consent is how the consent step was resolved.
type Consent int

const (
	ConsentPending Consent = iota
	ConsentApproved
	// ConsentAlreadyAuthorized means no consent control was shown.
	ConsentAlreadyAuthorized
	// ConsentClickFailed means a control was found but could not be clicked.
	ConsentClickFailed
)

func (c Consent) String() string {
	switch c {
	case ConsentApproved:
		return "approved"
	case ConsentAlreadyAuthorized:
		return "already authorized"
	case ConsentClickFailed:
		return "click failed"
	default:
		return "pending"
	}
}

// Result is the state of one run. It lives only in memory.
type Result struct {
	RunID      string
	State      State
	LastURL    string
	LoggedIn   bool
	LoginB     bool
	Consent    Consent
	Outcome    Outcome
	Authorized bool
	SignedOut  bool
	Started    time.Time
	Ended      time.Time
}

func (r *Result) MarshalZerologObject(e *zerolog.Event) {
	e.Str("state", r.State.String()).
		Bool("logged_in", r.LoggedIn).
		Bool("login_b", r.LoginB).
		Str("consent", r.Consent.String()).
		Str("outcome", r.Outcome.String()).
		Bool("authorized", r.Authorized).
		Bool("signed_out", r.SignedOut).
		Str("url", r.LastURL)
	if !r.Ended.IsZero() {
		e.Dur("elapsed", r.Ended.Sub(r.Started))
	}
}
