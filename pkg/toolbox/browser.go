package toolbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/agentcore/internal/logging"
	"github.com/aretw0/agentcore/pkg/adapters/memory"
	"github.com/aretw0/agentcore/pkg/domain"
	"github.com/aretw0/agentcore/pkg/guardrail"
	"github.com/aretw0/agentcore/pkg/ports"
	"github.com/aretw0/agentcore/pkg/registry"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	defaultWaitTimeout = 30 * time.Second
	defaultLockTTL     = time.Hour
)

// ErrNotAttached is returned by page actions before browser_attach succeeds.
var ErrNotAttached = errors.New("not attached to a browser")

// ErrPasswordField is returned when an action would touch a password input.
var ErrPasswordField = errors.New("password field detected")

// jsInspect reports what an action on the element could leak. A button
// without a type, or an input of type submit or image, submits its form.
const jsInspect = `() => {
	const type = (this.getAttribute("type") || "").toLowerCase();
	const tag = this.tagName.toLowerCase();
	const form = this.form || this.closest("form");
	const submits = !!form && ((tag === "button" && (type === "" || type === "submit")) ||
		(tag === "input" && (type === "submit" || type === "image")));
	return {
		password: type === "password",
		submits: submits,
		formHasPassword: !!(form && form.querySelector("input[type=password i]")),
	};
}`

// field is the result of jsInspect.
type field struct {
	Password        bool
	Submits         bool
	FormHasPassword bool
}

// guardField refuses password inputs, and elements that submit a form
// holding a password input. submit marks an element the caller will use
// as the form's submit control whatever its type.
func guardField(f field, submit bool) error {
	if f.Password {
		return ErrPasswordField
	}
	if (submit || f.Submits) && f.FormHasPassword {
		return fmt.Errorf("%w: the form holds a password input", ErrPasswordField)
	}
	return nil
}

// Browser implements the browser tools on top of a single page.
type Browser struct {
	mu      sync.Mutex
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger

	browser *rod.Browser
	page    *rod.Page
	release func()
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithLocker sets the lock guarding CDP endpoints. Defaults to an in-process lock.
func WithLocker(l ports.DistributedLocker) BrowserOption {
	return func(b *Browser) {
		b.locker = l
	}
}

// WithBrowserLogger configures the logger.
func WithBrowserLogger(logger *slog.Logger) BrowserOption {
	return func(b *Browser) {
		b.logger = logger
	}
}

// NewBrowser creates browser tools with no browser attached.
func NewBrowser(opts ...BrowserOption) *Browser {
	b := &Browser{
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.locker == nil {
		b.locker = sharedLocker
	}
	return b
}

// sharedLocker serializes endpoints across sessions in this process.
var sharedLocker = memory.NewLocker()

// Register adds the browser tools to reg and registers b for cleanup.
func (b *Browser) Register(reg *registry.Registry) error {
	str := func(name, desc string) domain.ParamSpec {
		return domain.ParamSpec{Name: name, Type: domain.ParamString, Required: true, Description: desc}
	}
	tools := []struct {
		spec domain.ToolSpec
		fn   registry.ToolFunction
	}{
		{domain.ToolSpec{
			Name:        "browser_attach",
			Description: "Attaches to a running browser through its CDP endpoint, or launches a headless one when cdp_url is empty.",
			Risk:        domain.RiskSensitive,
			Params:      []domain.ParamSpec{{Name: "cdp_url", Type: domain.ParamString, Description: "For example http://localhost:9222."}},
			Timeout:     time.Minute,
		}, b.Attach},
		{domain.ToolSpec{
			Name:        "browser_navigate",
			Description: "Navigates to a URL.",
			Risk:        domain.RiskSafe,
			Params:      []domain.ParamSpec{str("url", "")},
		}, b.Navigate},
		{domain.ToolSpec{
			Name:        "browser_click",
			Description: "Clicks an element on the page.",
			Risk:        domain.RiskSafe,
			Params:      []domain.ParamSpec{str("selector", "CSS selector.")},
		}, b.Click},
		{domain.ToolSpec{
			Name:        "browser_type_text",
			Description: "Types text into an element, replacing its content.",
			Risk:        domain.RiskSafe,
			Params:      []domain.ParamSpec{str("selector", "CSS selector."), str("text", "")},
		}, b.TypeText},
		{domain.ToolSpec{
			Name:        "browser_type_and_submit",
			Description: "Types text into an element and clicks a submit button.",
			Risk:        domain.RiskSensitive,
			Params:      []domain.ParamSpec{str("type_selector", ""), str("text", ""), str("submit_selector", "")},
		}, b.TypeAndSubmit},
		{domain.ToolSpec{
			Name:        "browser_wait_for_response",
			Description: "Waits for an element to appear on the page.",
			Risk:        domain.RiskSafe,
			Params: []domain.ParamSpec{
				str("selector", "CSS selector."),
				{Name: "timeout", Type: domain.ParamInteger, Description: "Timeout in milliseconds. Defaults to 30000."},
			},
			Timeout: 2 * time.Minute,
		}, b.WaitFor},
		{domain.ToolSpec{
			Name:        "browser_extract_text",
			Description: "Extracts the HTML content of the page.",
			Risk:        domain.RiskSafe,
		}, b.ExtractText},
		{domain.ToolSpec{
			Name:        "browser_close",
			Description: "Closes or detaches from the browser.",
			Risk:        domain.RiskSafe,
		}, b.CloseTool},
	}
	for _, t := range tools {
		if err := reg.Register(t.spec, t.fn); err != nil {
			return err
		}
	}
	reg.AddCloser(b)
	return nil
}

type attachArgs struct {
	CDPURL string `mapstructure:"cdp_url"`
}

type selectorArgs struct {
	Selector string `mapstructure:"selector"`
	Text     string `mapstructure:"text"`
	Timeout  int    `mapstructure:"timeout"`
}

type submitArgs struct {
	TypeSelector   string `mapstructure:"type_selector"`
	Text           string `mapstructure:"text"`
	SubmitSelector string `mapstructure:"submit_selector"`
}

type urlArgs struct {
	URL string `mapstructure:"url"`
}

// Attach connects to cdp_url, or launches a headless browser.
func (b *Browser) Attach(ctx context.Context, args map[string]any) (any, error) {
	var a attachArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return nil, errors.New("already attached; call browser_close first")
	}

	var (
		controlURL string
		unlock     ports.UnlockFunc
		l          *launcher.Launcher
	)
	if a.CDPURL == "" {
		l = launcher.New().Context(ctx).Headless(true).Leakless(false)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	} else {
		var err error
		if unlock, err = b.locker.Lock(ctx, "browser:"+endpointKey(a.CDPURL), b.lockTTL); err != nil {
			return nil, fmt.Errorf("browser endpoint is in use: %w", err)
		}
		if controlURL, err = launcher.ResolveURL(a.CDPURL); err != nil {
			b.cleanup(nil, unlock)
			return nil, fmt.Errorf("resolve cdp endpoint: %w", err)
		}
	}

	// The connection outlives this call; ctx only bounds the handshake.
	connCtx, disconnect := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, disconnect)
	browser := rod.New().Context(connCtx).ControlURL(controlURL)
	err := browser.Connect()
	if !stop() || err != nil {
		if err == nil {
			err = ctx.Err()
		}
		disconnect()
		b.cleanup(l, unlock)
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := firstPage(browser)
	if err != nil {
		disconnect()
		b.cleanup(l, unlock)
		return nil, fmt.Errorf("open page: %w", err)
	}

	b.browser, b.page = browser, page
	b.release = func() {
		if l != nil {
			_ = browser.Close()
		}
		disconnect()
		b.cleanup(l, unlock)
	}
	if l != nil {
		return "Launched a headless browser.", nil
	}
	return "Successfully attached to the browser.", nil
}

func (b *Browser) cleanup(l *launcher.Launcher, unlock ports.UnlockFunc) {
	if l != nil {
		l.Kill()
		l.Cleanup()
	}
	if unlock != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlock(ctx); err != nil {
			b.logger.Warn("release browser lock", "err", err)
		}
	}
}

func firstPage(browser *rod.Browser) (*rod.Page, error) {
	pages, err := browser.Pages()
	if err != nil {
		return nil, err
	}
	if len(pages) > 0 {
		return pages.First(), nil
	}
	return browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// endpointKey normalizes a CDP address so "localhost:9222" and
// "http://localhost:9222/" lock the same browser.
func endpointKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, prefix := range []string{"http://", "https://", "ws://", "wss://"} {
		key = strings.TrimPrefix(key, prefix)
	}
	if i := strings.IndexByte(key, '/'); i >= 0 {
		key = key[:i]
	}
	return key
}

func (b *Browser) currentPage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return nil, ErrNotAttached
	}
	return b.page.Context(ctx), nil
}

// element finds selector and applies guardField to it.
func element(page *rod.Page, selector string, submit bool) (*rod.Element, error) {
	if selector == "" {
		return nil, fmt.Errorf("%w: selector is required", domain.ErrInvalidParams)
	}
	el, err := page.Element(selector)
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", selector, err)
	}
	res, err := el.Eval(jsInspect)
	if err != nil {
		return nil, fmt.Errorf("inspect %q: %w", selector, err)
	}
	f := field{
		Password:        res.Value.Get("password").Bool(),
		Submits:         res.Value.Get("submits").Bool(),
		FormHasPassword: res.Value.Get("formHasPassword").Bool(),
	}
	if err := guardField(f, submit); err != nil {
		return nil, err
	}
	return el, nil
}

func (b *Browser) Navigate(ctx context.Context, args map[string]any) (any, error) {
	var a urlArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	u, err := guardrail.NormalizeURL(a.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidParams, err)
	}
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := page.Navigate(u.String()); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	return fmt.Sprintf("Navigated to %s.", u), nil
}

func (b *Browser) Click(ctx context.Context, args map[string]any) (any, error) {
	var a selectorArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	el, err := element(page, a.Selector, false)
	if err != nil {
		return nil, err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("click %q: %w", a.Selector, err)
	}
	return fmt.Sprintf("Clicked on '%s'.", a.Selector), nil
}

func typeInto(page *rod.Page, selector, text string) error {
	el, err := element(page, selector, false)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type into %q: %w", selector, err)
	}
	return nil
}

func (b *Browser) TypeText(ctx context.Context, args map[string]any) (any, error) {
	var a selectorArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	if err := typeInto(page, a.Selector, a.Text); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Typed text into '%s'.", a.Selector), nil
}

func (b *Browser) TypeAndSubmit(ctx context.Context, args map[string]any) (any, error) {
	var a submitArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	submit, err := element(page, a.SubmitSelector, true)
	if err != nil {
		return nil, err
	}
	if err := typeInto(page, a.TypeSelector, a.Text); err != nil {
		return nil, err
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("text typed, but submit failed: %w", err)
	}
	return "Successfully typed and submitted.", nil
}

func (b *Browser) WaitFor(ctx context.Context, args map[string]any) (any, error) {
	var a selectorArgs
	if err := decode(args, &a); err != nil {
		return nil, err
	}
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	timeout := defaultWaitTimeout
	if a.Timeout > 0 {
		timeout = time.Duration(a.Timeout) * time.Millisecond
	}
	if _, err := page.Timeout(timeout).Element(a.Selector); err != nil {
		return nil, fmt.Errorf("waiting for '%s': %w", a.Selector, err)
	}
	return fmt.Sprintf("Element '%s' appeared.", a.Selector), nil
}

func (b *Browser) ExtractText(ctx context.Context, args map[string]any) (any, error) {
	page, err := b.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if len(html) > maxReadBytes {
		html = html[:maxReadBytes] + "\n[truncated]"
	}
	return html, nil
}

func (b *Browser) CloseTool(ctx context.Context, args map[string]any) (any, error) {
	if err := b.Close(); err != nil {
		return nil, err
	}
	return "Browser closed.", nil
}

// Close releases the browser: a launched browser is closed, an attached one
// is only disconnected. The endpoint lock is released. Safe to call twice.
func (b *Browser) Close() error {
	b.mu.Lock()
	release := b.release
	b.browser, b.page, b.release = nil, nil, nil
	b.mu.Unlock()
	if release != nil {
		release()
	}
	return nil
}
