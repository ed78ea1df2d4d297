// Package auth runs the browser flow that links a Trakt account to a
// Stremio account.
//
// A run signs in to Stremio, opens Trakt's authorization page in a second
// tab, signs in to Trakt when asked, approves the consent screen, checks
// where the browser ended up and then returns to the Stremio tab. Only a
// failed Stremio sign-in is fatal; every later step logs its failure and
// moves on.
package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tmc/traktlink/internal/browser"
	"github.com/tmc/traktlink/internal/config"
)

const timestampLayout = "2006-01-02 15:04:05"

// Options configures a Runner.
type Options struct {
	Logger  zerolog.Logger
	RunID   string
	Markers Markers
	Now     func() time.Time
}

// Option is a functional option for configuring a Runner.
type Option func(*Options)

// WithLogger sets the logger runs write to.
func WithLogger(l zerolog.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithRunID sets the run identifier used in logs and screenshot paths.
func WithRunID(id string) Option { return func(o *Options) { o.RunID = id } }

// WithMarkers sets the URL markers used to classify the final page.
func WithMarkers(m Markers) Option { return func(o *Options) { o.Markers = m } }

// WithClock sets the time source for the run timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// Runner executes authorization runs. It holds no per-run state.
type Runner struct {
	cfg      *config.Config
	launcher browser.Launcher
	opts     Options
}

// NewRunner creates a Runner that launches browsers with l.
// Without WithRunID a random run id is generated.
func NewRunner(cfg *config.Config, l browser.Launcher, opts ...Option) *Runner {
	o := Options{
		Logger:  zerolog.Nop(),
		Markers: DefaultMarkers,
		Now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	return &Runner{cfg: cfg, launcher: l, opts: o}
}

// run is the state of one call to Runner.Run.
type run struct {
	*Runner
	log   zerolog.Logger
	res   *Result
	shots *browser.Recorder

	browser browser.Browser
	pages   []browser.Page
	closed  bool
}

// Run performs one authorization. The returned Result is never nil.
//
// Errors are returned for invalid configuration, browser start-up failure,
// a failed Stremio sign-in (wrapping ErrLoginFailed), an unreachable
// authorization page and recovered panics. Pages and the browser are always
// released before Run returns.
func (r *Runner) Run(ctx context.Context) (res *Result, err error) {
	s := &run{
		Runner: r,
		log:    r.opts.Logger,
		res:    &Result{RunID: r.opts.RunID, State: StateInit, Started: r.opts.Now()},
	}
	res = s.res
	s.log.Info().Msgf("--- run started at %s ---", res.Started.Format(timestampLayout))
	defer func() {
		res.Ended = r.opts.Now()
		s.log.Info().Msgf("--- run ended at %s ---", res.Ended.Format(timestampLayout))
	}()

	if err := r.cfg.Validate(); err != nil {
		s.log.Error().Err(err).Msg("invalid configuration")
		return res, err
	}
	if r.cfg.Screenshots {
		s.shots = browser.NewRecorder(filepath.Join(r.cfg.ScreenshotDir, r.opts.RunID), s.log)
	}

	defer s.teardown()
	defer func() {
		if p := recover(); p != nil {
			pe := &PanicError{Value: p, Stack: debug.Stack()}
			s.log.Error().Str("stack", string(pe.Stack)).Msgf("critical error: %v", p)
			err = &StepError{State: res.State, Err: pe}
		}
	}()

	if err := s.flow(ctx); err != nil {
		s.log.Error().Err(err).Stringer("state", res.State).Msg("run failed")
		return res, &StepError{State: res.State, Err: err}
	}
	s.log.Info().EmbedObject(res).Msg("run finished")
	return res, nil
}

func (s *run) flow(ctx context.Context) error {
	primary, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	if err := s.loginStremio(ctx, primary); err != nil {
		return err
	}
	handshake, err := s.startHandshake(ctx, primary)
	if err != nil {
		return err
	}
	s.loginTrakt(ctx, handshake)
	s.consent(ctx, handshake)
	s.verify(ctx, handshake)
	s.closePage(handshake)
	s.restore(ctx, primary)
	return nil
}

func (s *run) enter(st State) {
	s.res.State = st
	s.log.Info().Stringer("state", st).Msg("state changed")
}

func (s *run) launchOptions() browser.LaunchOptions {
	return browser.LaunchOptions{
		ExecPath:          s.cfg.BrowserPath,
		Headless:          s.cfg.Headless,
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		UserAgent:         s.cfg.UserAgent,
		NavigationTimeout: s.cfg.NavigationTimeout,
		Blocked:           browser.DefaultBlocked,
		Flags:             browser.DefaultFlags,
		Logger:            s.log,
	}
}

func (s *run) acquire(ctx context.Context) (browser.Page, error) {
	s.log.Info().EmbedObject(s.cfg).Msg("launching browser")
	b, err := s.launcher.Launch(ctx, s.launchOptions())
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	s.browser = b

	p, err := s.newPage(ctx)
	if err != nil {
		return nil, err
	}
	s.enter(StateBrowserReady)
	return p, nil
}

func (s *run) newPage(ctx context.Context) (browser.Page, error) {
	p, err := s.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *run) loginStremio(ctx context.Context, p browser.Page) error {
	if err := p.Navigate(ctx, s.cfg.StremioLoginURL); err != nil {
		return fmt.Errorf("open stremio login page: %w", err)
	}
	s.log.Info().Str("url", s.cfg.StremioLoginURL).Msg("stremio login page loaded")
	s.shots.Capture(ctx, p, "login-a-loaded")

	for _, f := range []struct{ sel, value string }{
		{selEmail, s.cfg.StremioEmail},
		{selPassword, s.cfg.StremioPassword},
	} {
		ok, err := p.SetValue(ctx, f.sel, f.value)
		if err != nil || !ok {
			s.log.Warn().Err(err).Str("selector", f.sel).Msg("could not fill login field")
		}
	}
	if !browser.ResilientClick(ctx, p, selSubmit, s.cfg.ClickTimeout) {
		s.log.Warn().Str("selector", selSubmit).Msg("login submit not clicked")
	}

	wctx, cancel := context.WithTimeout(ctx, s.cfg.LoginTimeout)
	defer cancel()
	if err := p.WaitVisible(wctx, selAccount); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Error().Str("selector", selAccount).Msg("stremio login failed - maybe credentials rejected or session dropped")
		s.shots.Capture(ctx, p, "login-a-failed")
		return fmt.Errorf("%w: %s not visible after %v", ErrLoginFailed, selAccount, s.cfg.LoginTimeout)
	}

	s.res.LoggedIn = true
	s.log.Info().Msg("stremio login successful")
	s.enter(StateAuthenticatedA)
	return nil
}

func (s *run) startHandshake(ctx context.Context, primary browser.Page) (browser.Page, error) {
	clicked := browser.ResilientClick(ctx, primary, selConnectTr, s.cfg.ClickTimeout)
	s.log.Info().Bool("clicked", clicked).Str("selector", selConnectTr).Msg("trakt connect control")

	race, err := browser.RaceNavigation(ctx, primary, s.cfg.ConnectSettle)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	s.log.Debug().Stringer("settled", race).Msg("connect settled")

	p, err := s.newPage(ctx)
	if err != nil {
		return nil, err
	}
	authURL := s.cfg.AuthorizeURL()
	if err := p.Navigate(ctx, authURL); err != nil {
		return nil, fmt.Errorf("open authorization page: %w", err)
	}
	s.res.LastURL = s.currentURL(ctx, p)
	s.log.Info().Str("url", s.res.LastURL).Msg("handshake started")
	s.shots.Capture(ctx, p, "handshake-loaded")
	s.enter(StateHandshakeStarted)
	return p, nil
}

// loginTrakt signs in when the authorization page redirected to Trakt's
// sign-in form. Failures are logged only.
func (s *run) loginTrakt(ctx context.Context, p browser.Page) {
	if !strings.Contains(s.res.LastURL, signInPathMarker) {
		s.log.Info().Msg("no trakt login page shown")
		return
	}
	s.res.LoginB = true
	s.enter(StateLoginB)
	s.log.Info().Msg("trakt login page detected")

	fctx, cancel := context.WithTimeout(ctx, s.cfg.TraktLoginTimeout)
	var err error
	switch s.cfg.LoginMode {
	case config.LoginForm:
		err = s.submitTraktForm(fctx, p)
	default:
		err = s.typeTraktLogin(fctx, p)
	}
	cancel()
	if err != nil {
		s.log.Warn().Err(err).Str("mode", string(s.cfg.LoginMode)).Msg("trakt login not submitted")
		return
	}
	s.log.Info().Str("mode", string(s.cfg.LoginMode)).Msg("trakt credentials submitted")

	nctx, cancel := context.WithTimeout(ctx, s.cfg.TraktLoginTimeout)
	defer cancel()
	if err := p.WaitNavigation(nctx); err != nil {
		s.log.Warn().Err(err).Msg("trakt login navigation did not complete")
	}
	s.res.LastURL = s.currentURL(ctx, p)
	s.shots.Capture(ctx, p, "login-b-submitted")
}

func (s *run) typeTraktLogin(ctx context.Context, p browser.Page) error {
	if err := p.WaitVisible(ctx, selTraktForm); err != nil {
		return fmt.Errorf("wait for login form: %w", err)
	}
	if err := p.Type(ctx, s.cfg.TraktEmail, s.cfg.TypeDelay); err != nil {
		return fmt.Errorf("type email: %w", err)
	}
	if err := p.Press(ctx, browser.KeyTab); err != nil {
		return err
	}
	if err := p.Type(ctx, s.cfg.TraktPassword, s.cfg.TypeDelay); err != nil {
		return fmt.Errorf("type password: %w", err)
	}
	return p.Press(ctx, browser.KeyEnter)
}

func (s *run) submitTraktForm(ctx context.Context, p browser.Page) error {
	if err := p.WaitVisible(ctx, selTraktForm); err != nil {
		return fmt.Errorf("wait for login form: %w", err)
	}
	for _, f := range []struct{ sel, value string }{
		{selTraktLogin, s.cfg.TraktEmail},
		{selTraktPassword, s.cfg.TraktPassword},
	} {
		ok, err := p.SetValue(ctx, f.sel, f.value)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("field %s not found", f.sel)
		}
	}
	return p.Submit(ctx, selTraktForm)
}

func (s *run) consent(ctx context.Context, p browser.Page) {
	sel, found := browser.FirstPresent(ctx, p, consentSelectors, s.cfg.ConsentTimeout)
	switch {
	case !found:
		s.res.Consent = ConsentAlreadyAuthorized
		s.log.Info().Msg("no consent control found, treating as already authorized")
	case browser.ResilientClick(ctx, p, sel, s.cfg.ClickTimeout):
		s.res.Consent = ConsentApproved
		s.log.Info().Str("selector", sel).Msg("consent approved")
		s.shots.Capture(ctx, p, "consent")
	default:
		s.res.Consent = ConsentClickFailed
		s.log.Warn().Str("selector", sel).Msg("consent control found but not clicked")
	}
	s.enter(StateConsentResolved)
}

func (s *run) verify(ctx context.Context, p browser.Page) {
	if s.res.Consent == ConsentApproved {
		race, err := browser.RaceNavigation(ctx, p, s.cfg.ConsentSettle)
		if race != browser.RaceNavigated {
			s.log.Warn().Err(err).Stringer("settled", race).Msg("navigation after authorization may have timed out")
		}
	}

	s.res.LastURL = s.currentURL(ctx, p)
	s.log.Info().Str("url", s.res.LastURL).Msg("final redirect URL")

	s.res.Outcome = Classify(s.res.LastURL, s.opts.Markers)
	s.res.Authorized = s.res.Outcome != OutcomeUnknown

	lvl, msg := zerolog.InfoLevel, "authorization successful"
	switch s.res.Outcome {
	case OutcomePending:
		msg = "authorization likely complete via callback"
	case OutcomeUnknown:
		lvl, msg = zerolog.WarnLevel, "authorization may have partially failed"
	}
	s.log.WithLevel(lvl).Stringer("outcome", s.res.Outcome).Msg(msg)

	s.shots.Capture(ctx, p, "verified")
	s.enter(StateVerified)
}

func (s *run) restore(ctx context.Context, p browser.Page) {
	if err := p.BringToFront(ctx); err != nil {
		s.log.Warn().Err(err).Msg("could not bring stremio page to front")
	}
	if err := p.Reload(ctx); err != nil {
		s.log.Warn().Err(err).Msg("stremio page reload failed")
	} else {
		s.log.Info().Msg("stremio page reloaded")
	}

	if !s.shouldSignOut() {
		return
	}
	sel, found := browser.FirstPresent(ctx, p, signOutSelectors, s.cfg.ClickTimeout)
	if !found {
		s.log.Warn().Msg("sign-out control not found")
		return
	}
	if !browser.ResilientClick(ctx, p, sel, s.cfg.ClickTimeout) {
		s.log.Warn().Str("selector", sel).Msg("sign-out control not clicked")
		return
	}
	s.res.SignedOut = true
	s.log.Info().Str("selector", sel).Msg("signed out")
	s.shots.Capture(ctx, p, "signed-out")
	s.enter(StateSignedOut)
}

func (s *run) shouldSignOut() bool {
	switch s.cfg.SignOut {
	case config.SignOutAlways:
		return true
	case config.SignOutOnSuccess:
		return s.res.Authorized
	default:
		return false
	}
}

func (s *run) currentURL(ctx context.Context, p browser.Page) string {
	u, err := p.URL(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("read page url")
	}
	return u
}

func (s *run) closePage(p browser.Page) {
	for i, q := range s.pages {
		if q == p {
			s.pages = append(s.pages[:i], s.pages[i+1:]...)
			break
		}
	}
	if err := p.Close(); err != nil {
		s.log.Debug().Err(err).Msg("close page")
	}
}

// teardown closes every open page, newest first, then the browser. It runs
// once per run.
func (s *run) teardown() {
	if s.closed {
		return
	}
	s.closed = true

	for i := len(s.pages) - 1; i >= 0; i-- {
		if err := s.pages[i].Close(); err != nil {
			s.log.Debug().Err(err).Msg("close page")
		}
	}
	s.pages = nil
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn().Err(err).Msg("close browser")
		}
	}
	s.enter(StateClosed)
}
