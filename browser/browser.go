// Package browser provides a chromedp-backed session driver. It maps the
// engine's small navigate/find/fill/click/wait surface onto a headless
// Chrome instance.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/ddns-tools/renewer"
)

// Options configure the browser session.
type Options struct {
	// Headless runs Chrome without a visible window. On by default.
	Headless bool
	// UserAgent overrides the browser's user agent string.
	UserAgent string
	// NavTimeout bounds a single page navigation.
	NavTimeout time.Duration
	// ExecPath points at a specific Chrome binary. Empty uses the default
	// lookup.
	ExecPath string
}

// DefaultOptions returns the settings used when none are supplied.
func DefaultOptions() Options {
	return Options{
		Headless:   true,
		NavTimeout: 60 * time.Second,
	}
}

// Session is one exclusive Chrome session implementing renewer.Driver.
type Session struct {
	ctx     context.Context
	cancels []context.CancelFunc
	opts    Options
}

// New launches a Chrome instance and returns the session. The caller owns
// the session and must release it through Close.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = DefaultOptions().NavTimeout
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:     browserCtx,
		cancels: []context.CancelFunc{browserCancel, allocCancel},
		opts:    opts,
	}

	// Start the browser eagerly so a missing binary surfaces here rather
	// than on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	return s, nil
}

// Navigate implements renewer.Driver.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bind(ctx, s.opts.NavTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return classify("navigate", err)
	}
	return nil
}

// Find implements renewer.Driver. A selector that matches nothing reports
// renewer.ErrElementNotFound.
func (s *Session) Find(ctx context.Context, selector string) (renewer.Element, error) {
	runCtx, cancel := s.bind(ctx, s.opts.NavTimeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx, chromedp.Nodes(selector, &nodes, queryOption(selector), chromedp.AtLeast(0)))
	if err != nil {
		return renewer.Element{}, classify("find", err)
	}
	if len(nodes) == 0 {
		return renewer.Element{}, fmt.Errorf("%q: %w", selector, renewer.ErrElementNotFound)
	}
	return renewer.Element{Selector: selector}, nil
}

// Fill implements renewer.Driver. The field is cleared before typing.
func (s *Session) Fill(ctx context.Context, el renewer.Element, text string) error {
	runCtx, cancel := s.bind(ctx, s.opts.NavTimeout)
	defer cancel()

	opt := queryOption(el.Selector)
	err := chromedp.Run(runCtx,
		chromedp.Clear(el.Selector, opt),
		chromedp.SendKeys(el.Selector, text, opt),
	)
	if err != nil {
		return classify("fill", err)
	}
	return nil
}

// Click implements renewer.Driver.
func (s *Session) Click(ctx context.Context, el renewer.Element) error {
	runCtx, cancel := s.bind(ctx, s.opts.NavTimeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(el.Selector, queryOption(el.Selector))); err != nil {
		return classify("click", err)
	}
	return nil
}

// WaitFor implements renewer.Driver. An elapsed timeout reports (false, nil)
// so callers can distinguish "not there yet" from a broken session.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	runCtx, cancel := s.bind(ctx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx, chromedp.WaitVisible(selector, queryOption(selector)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return false, nil
		}
		return false, classify("wait", err)
	}
	return true, nil
}

// Close implements renewer.Driver. It tears the browser down; the session is
// unusable afterwards.
func (s *Session) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}

// bind derives a run context tied to both the caller's cancellation and the
// session's browser.
func (s *Session) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancelTimeout := context.WithTimeout(s.ctx, timeout)
	stop := context.AfterFunc(ctx, cancelTimeout)
	return runCtx, func() {
		stop()
		cancelTimeout()
	}
}

// isXPath reports whether a selector is an XPath expression rather than a
// CSS query. XPath expressions start with "/" or "(".
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}

// queryOption picks the query language from the selector's shape.
func queryOption(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// classify maps a chromedp failure onto the engine's driver error taxonomy.
// Context expiry and connection loss are transient; everything else is
// structural.
func classify(op string, err error) error {
	transient := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, chromedp.ErrInvalidContext) ||
		strings.Contains(err.Error(), "net::ERR")
	return &renewer.DriverError{
		Op:        op,
		Reason:    err.Error(),
		Transient: transient,
	}
}
