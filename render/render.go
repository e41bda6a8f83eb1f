// CLAUDE:SUMMARY Headless Chrome page rendering via go-rod with console/error capture and hydration readiness wait.
// Package render loads pages of a running SSR app in headless Chrome,
// records what the client logged while hydrating, and hands back the live
// DOM. It is the browser side of hydrate: the server-rendered HTML comes
// from fetcher or the CLI, the client view comes from here.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/hydrate/idgen"
)

// DefaultReady is satisfied once the app has routed to the requested path
// and finished hydrating. It receives the path as its only argument.
const DefaultReady = `(path) => {
	const app = window.useNuxtApp && window.useNuxtApp();
	return !!app && app._route.fullPath === path && !app.isHydrating;
}`

// Config configures a Renderer.
type Config struct {
	// BaseURL is the origin paths are resolved against.
	BaseURL string

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// NoStealth disables go-rod/stealth page setup.
	NoStealth bool

	// NavTimeout bounds a single navigation attempt. Default: 3s.
	NavTimeout time.Duration

	// Retries is the number of extra navigation attempts.
	Retries int

	// Ready is a JS predicate polled after navigation. Default: DefaultReady.
	Ready string

	// ReadyTimeout bounds the readiness wait. Default: 30s.
	ReadyTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 3 * time.Second
	}
	if c.Ready == "" {
		c.Ready = DefaultReady
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Renderer owns one browser connection.
type Renderer struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
	ids     idgen.Generator
}

// New launches Chrome (or connects to cfg.RemoteURL).
func New(ctx context.Context, cfg Config) (*Renderer, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("render: base url: %w", err)
	}

	r := &Renderer{cfg: cfg, ids: idgen.Prefixed("page_", idgen.NanoID(8))}
	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("render: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		cfg.Logger.Info("render: launched local chrome", "url", wsURL)
	} else {
		cfg.Logger.Info("render: connecting to remote", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		r.Close()
		return nil, fmt.Errorf("render: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		cfg.Logger.Warn("render: ignore cert errors failed", "error", err)
	}
	r.browser = b
	return r, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}

// Render opens a new tab, starts capturing console output, page errors and
// requests, navigates to path and waits for the readiness predicate. An
// empty path opens a blank tab. The caller must Close the returned Page.
func (r *Renderer) Render(ctx context.Context, path string) (*Page, error) {
	if r.browser == nil {
		return nil, fmt.Errorf("render: renderer is closed")
	}

	var (
		rp  *rod.Page
		err error
	)
	if r.cfg.NoStealth {
		rp, err = r.browser.Page(proto.TargetCreateTarget{URL: ""})
	} else {
		rp, err = stealth.Page(r.browser)
	}
	if err != nil {
		return nil, fmt.Errorf("render: create tab: %w", err)
	}

	p := newPage(rp, r.ids(), path, r.cfg.BaseURL)
	p.capture(ctx)

	if path == "" {
		return p, nil
	}

	target, err := resolveURL(r.cfg.BaseURL, path)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := r.navigate(ctx, p, target); err != nil {
		p.Close()
		return nil, err
	}

	readyCtx, cancel := context.WithTimeout(ctx, r.cfg.ReadyTimeout)
	defer cancel()
	if err := rp.Context(readyCtx).Wait(rod.Eval(r.cfg.Ready, path)); err != nil {
		p.Close()
		return nil, fmt.Errorf("render: %s not ready: %w", path, err)
	}

	r.cfg.Logger.Debug("render: page ready", "id", p.ID, "path", path,
		"console", len(p.ConsoleLogs()), "page_errors", len(p.PageErrors()))
	return p, nil
}

func (r *Renderer) navigate(ctx context.Context, p *Page, target string) error {
	var err error
	for attempt := 0; attempt <= r.cfg.Retries; attempt++ {
		navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavTimeout)
		err = p.rod.Context(navCtx).Navigate(target)
		cancel()
		if err == nil {
			return nil
		}
		r.cfg.Logger.Warn("render: navigate failed", "url", target, "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("render: navigate %s: %w", target, err)
}

// ExpectNoClientErrors renders path and fails if the client raised an
// uncaught error or logged an error or warning.
func (r *Renderer) ExpectNoClientErrors(ctx context.Context, path string) error {
	p, err := r.Render(ctx, path)
	if err != nil {
		return err
	}
	defer p.Close()
	return CheckClientErrors(path, p.PageErrors(), p.ConsoleLogs())
}

// Page is a rendered tab plus everything captured on it.
type Page struct {
	ID   string
	Path string

	rod  *rod.Page
	base string
	stop context.CancelFunc

	mu         sync.Mutex
	console    []ConsoleMessage
	pageErrors []string
	requests   []string
}

func newPage(rp *rod.Page, id, path, base string) *Page {
	return &Page{ID: id, Path: path, rod: rp, base: strings.TrimRight(base, "/")}
}

func (p *Page) capture(ctx context.Context) {
	evCtx, cancel := context.WithCancel(ctx)
	p.stop = cancel
	wait := p.rod.Context(evCtx).EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			p.mu.Lock()
			p.console = append(p.console, ConsoleMessage{Type: string(e.Type), Text: consoleText(e.Args)})
			p.mu.Unlock()
		},
		func(e *proto.RuntimeExceptionThrown) {
			p.mu.Lock()
			p.pageErrors = append(p.pageErrors, exceptionText(e.ExceptionDetails))
			p.mu.Unlock()
		},
		func(e *proto.NetworkRequestWillBeSent) {
			if e.Request == nil {
				return
			}
			p.mu.Lock()
			p.requests = append(p.requests, trimOrigin(e.Request.URL, p.base))
			p.mu.Unlock()
		},
	)
	go wait()
}

// ConsoleLogs returns a copy of the console messages captured so far.
func (p *Page) ConsoleLogs() []ConsoleMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ConsoleMessage(nil), p.console...)
}

// PageErrors returns uncaught exception messages captured so far.
func (p *Page) PageErrors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pageErrors...)
}

// Requests returns the URLs requested by the page, same-origin ones
// relative to the base URL.
func (p *Page) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

// HTML serialises the live DOM.
func (p *Page) HTML(ctx context.Context) (string, error) {
	s, err := p.rod.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("render: get DOM: %w", err)
	}
	return s, nil
}

// Rod exposes the underlying page for custom interaction.
func (p *Page) Rod() *rod.Page { return p.rod }

// Close stops capturing and closes the tab.
func (p *Page) Close() error {
	if p.stop != nil {
		p.stop()
	}
	if p.rod != nil {
		return p.rod.Close()
	}
	return nil
}

func resolveURL(base, path string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("render: base url: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("render: path %q: %w", path, err)
	}
	return b.ResolveReference(ref).String(), nil
}

func trimOrigin(u, base string) string {
	if base != "" && strings.HasPrefix(u, base+"/") {
		return u[len(base):]
	}
	return u
}

func consoleText(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		switch {
		case a.Description != "":
			parts = append(parts, a.Description)
		case !a.Value.Nil():
			parts = append(parts, a.Value.Str())
		default:
			parts = append(parts, string(a.Type))
		}
	}
	return strings.Join(parts, " ")
}

func exceptionText(d *proto.RuntimeExceptionDetails) string {
	if d == nil {
		return ""
	}
	if d.Exception != nil && d.Exception.Description != "" {
		return d.Exception.Description
	}
	return d.Text
}
