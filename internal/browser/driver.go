// Package browser drives Chrome through the ANEF SSO login and dashboard fetch.
// Each account runs in its own incognito browser context that is disposed
// before Authenticate returns.
package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"anefwatch/internal/classify"
	"anefwatch/internal/types"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

var (
	// ErrFormNotFound means the SSO login controls never appeared.
	ErrFormNotFound = errors.New("login form not found")
	// ErrNavigationTimeout means a navigation phase exceeded its budget.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrNotStarted means Authenticate was called before Start.
	ErrNotStarted = errors.New("browser not started")
)

// NavigationPath tells which phase produced the returned markup.
type NavigationPath string

const (
	// PathSubmittedDirectlyClassified: the login phase markup was already terminal.
	PathSubmittedDirectlyClassified NavigationPath = "submitted-directly-classified"
	// PathReachedDashboardStage: the markup comes from the dashboard fetch.
	PathReachedDashboardStage NavigationPath = "reached-dashboard-stage"
)

// Result is the raw outcome of one login attempt.
type Result struct {
	Markup    string
	Path      NavigationPath
	SessionID string
}

// ReachedDashboard reports whether Markup comes from the dashboard fetch.
func (r Result) ReachedDashboard() bool {
	return r.Path == PathReachedDashboardStage
}

const (
	usernameSelector = `input[name="username"]`
	passwordSelector = `input[name="password"]`
	submitSelector   = `button[type="submit"]`
)

// Config holds browser configuration.
type Config struct {
	Bin            string
	Headless       bool
	KeepOpen       bool
	UserAgent      string
	AcceptLanguage string
	ViewportWidth  int
	ViewportHeight int

	LoginURL string
	HomeURL  string

	LoginTimeout     time.Duration
	DashboardTimeout time.Duration
	FormWait         time.Duration
	SubmitSettle     time.Duration
	DashboardSettle  time.Duration
	VisibleLinger    time.Duration
}

// DefaultConfig returns sensible defaults; portal URLs come from the app config.
func DefaultConfig() Config {
	return Config{
		Headless:         true,
		AcceptLanguage:   "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
		ViewportWidth:    1920,
		ViewportHeight:   1080,
		LoginTimeout:     20 * time.Second,
		DashboardTimeout: 40 * time.Second,
		FormWait:         10 * time.Second,
		SubmitSettle:     5 * time.Second,
		DashboardSettle:  5 * time.Second,
		VisibleLinger:    4 * time.Second,
	}
}

// HoldFunc blocks while an operator inspects a session kept open.
type HoldFunc func(ctx context.Context, sessionID string)

// Driver owns the Chrome process for a run and opens one isolated context per
// account.
type Driver struct {
	cfg    Config
	logger *zap.Logger
	hold   HoldFunc
	sleep  func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	launch   *launcher.Launcher
	browser  *rod.Browser
	ownsProc bool
}

// NewDriver creates a driver. Call Start before Authenticate.
func NewDriver(cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		cfg:    cfg,
		logger: logger,
		hold:   StdinHold(os.Stdin, os.Stderr),
		sleep:  Sleep,
	}
}

// SetHold replaces the keep-open hold, used by tests and non-interactive callers.
func (d *Driver) SetHold(h HoldFunc) {
	d.hold = h
}

// Start launches Chrome, or connects to one already running at controlURL.
func (d *Driver) Start(ctx context.Context, controlURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		if _, err := d.browser.Version(); err == nil {
			return nil
		}
		d.logger.Warn("Stale browser connection detected, relaunching")
		d.closeLocked()
	}

	if controlURL == "" {
		l := launcher.New().
			Headless(d.cfg.Headless).
			NoSandbox(true).
			Set(flags.Flag("disable-blink-features"), "AutomationControlled").
			Set(flags.Flag("disable-dev-shm-usage")).
			Set(flags.Flag("lang"), "fr-FR")
		if d.cfg.Bin != "" {
			l = l.Bin(d.cfg.Bin)
		}
		url, err := l.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		d.launch = l
		d.ownsProc = true
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if d.ownsProc {
			d.launch.Kill()
		}
		return fmt.Errorf("connect to chrome: %w", err)
	}
	d.browser = b
	d.logger.Debug("Browser connected", zap.String("control_url", controlURL), zap.Bool("headless", d.cfg.Headless))
	return nil
}

// Shutdown closes the browser and the Chrome process it launched.
func (d *Driver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Driver) closeLocked() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
		d.browser = nil
	}
	if d.ownsProc && d.launch != nil {
		d.launch.Kill()
	}
	d.launch = nil
	d.ownsProc = false
	return err
}

// Authenticate logs one account in and returns the markup that decides its
// outcome. The incognito context is disposed on every return path.
func (d *Driver) Authenticate(ctx context.Context, rec types.CredentialRecord, sessionID string) (Result, error) {
	d.mu.Lock()
	b := d.browser
	d.mu.Unlock()
	if b == nil {
		return Result{}, ErrNotStarted
	}

	log := d.logger.With(zap.String("session", sessionID), zap.String("username", rec.Username))

	incognito, err := b.Incognito()
	if err != nil {
		return Result{}, fmt.Errorf("incognito context: %w", err)
	}
	defer func() {
		d.release(ctx, sessionID, log)
		if err := incognito.Close(); err != nil {
			log.Debug("Dispose browser context failed", zap.Error(err))
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return Result{}, fmt.Errorf("create page: %w", err)
	}
	if err := d.prepare(page); err != nil {
		return Result{}, err
	}

	log.Info("Submitting SSO login form")
	markup, err := d.loginPhase(ctx, page, rec)
	if err != nil {
		return Result{}, err
	}

	if classify.IsTerminal(markup) {
		log.Info("Login outcome decided after submission, dashboard fetch skipped")
		return Result{Markup: markup, Path: PathSubmittedDirectlyClassified, SessionID: sessionID}, nil
	}

	log.Info("Fetching dashboard")
	markup, err = d.dashboardPhase(ctx, page)
	if err != nil {
		return Result{}, err
	}
	return Result{Markup: markup, Path: PathReachedDashboardStage, SessionID: sessionID}, nil
}

// prepare applies the fingerprint overrides before any navigation.
func (d *Driver) prepare(page *rod.Page) error {
	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		return fmt.Errorf("register stealth script: %w", err)
	}
	if d.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      d.cfg.UserAgent,
			AcceptLanguage: d.cfg.AcceptLanguage,
		}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             d.cfg.ViewportWidth,
		Height:            d.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		d.logger.Debug("Set viewport failed", zap.Error(err))
	}
	return nil
}

func (d *Driver) loginPhase(ctx context.Context, page *rod.Page, rec types.CredentialRecord) (string, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, d.cfg.LoginTimeout)
	defer cancel()
	p := page.Context(phaseCtx)

	if err := p.Navigate(d.cfg.LoginURL); err != nil {
		return "", phaseError("login", err)
	}

	user, pass, submit, err := d.findControls(p)
	if err != nil {
		return "", err
	}

	if err := d.pause(phaseCtx, 300*time.Millisecond, 200*time.Millisecond); err != nil {
		return "", phaseError("login", err)
	}
	if err := fillField(user, rec.Username); err != nil {
		return "", phaseError("login", fmt.Errorf("fill username: %w", err))
	}
	if err := d.pause(phaseCtx, 400*time.Millisecond, 300*time.Millisecond); err != nil {
		return "", phaseError("login", err)
	}
	if err := fillField(pass, rec.Password); err != nil {
		return "", phaseError("login", fmt.Errorf("fill password: %w", err))
	}
	if err := d.pause(phaseCtx, 800*time.Millisecond, 400*time.Millisecond); err != nil {
		return "", phaseError("login", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", phaseError("login", fmt.Errorf("submit: %w", err))
	}

	if err := d.sleep(phaseCtx, d.cfg.SubmitSettle); err != nil {
		return "", phaseError("login", err)
	}
	html, err := p.HTML()
	if err != nil {
		return "", phaseError("login", err)
	}
	return html, nil
}

func (d *Driver) dashboardPhase(ctx context.Context, page *rod.Page) (string, error) {
	phaseCtx, cancel := context.WithTimeout(ctx, d.cfg.DashboardTimeout)
	defer cancel()
	p := page.Context(phaseCtx)

	if err := p.Navigate(d.cfg.HomeURL); err != nil {
		return "", phaseError("dashboard", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", phaseError("dashboard", err)
	}
	if err := d.sleep(phaseCtx, d.cfg.DashboardSettle); err != nil {
		return "", phaseError("dashboard", err)
	}
	html, err := p.HTML()
	if err != nil {
		return "", phaseError("dashboard", err)
	}
	return html, nil
}

// findControls waits up to FormWait for the three login controls.
func (d *Driver) findControls(p *rod.Page) (user, pass, submit *rod.Element, err error) {
	wait := p.Timeout(d.cfg.FormWait)
	defer wait.CancelTimeout()

	els := make([]*rod.Element, 0, 3)
	for _, sel := range []string{usernameSelector, passwordSelector, submitSelector} {
		el, err := wait.Element(sel)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, nil, nil, fmt.Errorf("%w: %s", ErrFormNotFound, sel)
			}
			return nil, nil, nil, fmt.Errorf("find %s: %w", sel, err)
		}
		els = append(els, el.Context(p.GetContext()))
	}
	return els[0], els[1], els[2], nil
}

// fillField sets a value the way a user would, so framework listeners see it.
func fillField(el *rod.Element, value string) error {
	if err := el.Focus(); err != nil {
		return err
	}
	_, err := el.Eval(`function (v) {
		this.value = v;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	return err
}

// pause waits base plus a random share of spread.
func (d *Driver) pause(ctx context.Context, base, spread time.Duration) error {
	return d.sleep(ctx, Jitter(base, spread))
}

// release runs the operator-debug holds before the context is disposed.
func (d *Driver) release(ctx context.Context, sessionID string, log *zap.Logger) {
	switch {
	case d.cfg.KeepOpen && d.hold != nil:
		log.Info("Browser kept open for inspection")
		d.hold(ctx, sessionID)
	case !d.cfg.Headless && d.cfg.VisibleLinger > 0:
		_ = d.sleep(ctx, d.cfg.VisibleLinger)
	}
}

// phaseError maps a phase failure onto the driver error taxonomy.
func phaseError(phase string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s phase: %v", ErrNavigationTimeout, phase, err)
	}
	return fmt.Errorf("%s phase: %w", phase, err)
}

// Jitter returns base plus a uniformly random duration in [0, spread).
func Jitter(base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}
	return base + rand.N(spread)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StdinHold waits for the operator to press Enter.
func StdinHold(in io.Reader, out io.Writer) HoldFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, sessionID string) {
		fmt.Fprintf(out, "Browser open for %s - press Enter to close...\n", sessionID)
		done := make(chan struct{})
		go func() {
			_, _ = reader.ReadString('\n')
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
}
