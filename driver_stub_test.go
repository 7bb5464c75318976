package renewer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

const testSecret = "JBSWY3DPEHPK3PXP"

// testEngineConfig returns a config with distinct selectors per interaction
// point and millisecond retry delays so failure paths stay fast.
func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Hosts = []string{"home.ddns.net"}
	cfg.Service.Selectors = SelectorConfig{
		Username:           "#user",
		Password:           "#pass",
		Submit:             "#login",
		InvalidCredentials: "#bad-creds",
		TOTPInput:          "#otp",
		TOTPSubmit:         "#otp-submit",
		Dashboard:          "#dashboard",
		TOTPRejected:       "#otp-rejected",
		HostRow:            "row:%s",
		RenewAction:        "renew:%s",
		RenewConfirmed:     "#renew-confirmed",
	}
	cfg.Service.PageLoadWait = 10 * time.Millisecond
	cfg.Service.PromptWait = 10 * time.Millisecond
	cfg.Service.ConfirmWait = 10 * time.Millisecond
	cfg.Retry = RetryConfig{
		MaxRetries:      2,
		BaseDelay:       time.Millisecond,
		MaxDelay:        4 * time.Millisecond,
		ExponentialBase: 2.0,
		Jitter:          false,
	}
	cfg.Audit = AuditConfig{Enabled: false}
	return cfg
}

// stubDriver is a scriptable in-memory Driver. Selectors resolve by default;
// entries in missing report ErrElementNotFound, entries in waitAbsent make
// WaitFor report an elapsed timeout. The Fn hooks override whole operations.
// Every call is appended to ops as "verb selector-or-url[ text]".
type stubDriver struct {
	mu         sync.Mutex
	missing    map[string]bool
	waitAbsent map[string]bool

	navigateFn func(ctx context.Context, url string) error
	findFn     func(ctx context.Context, selector string) (Element, error)
	fillFn     func(ctx context.Context, el Element, text string) error
	clickFn    func(ctx context.Context, el Element) error
	waitFn     func(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	ops    []string
	closed int
}

// newStubDriver returns a stub scripted as a logged-out page in its default
// state: no failure landmarks visible, everything else present.
func newStubDriver() *stubDriver {
	return &stubDriver{
		missing: map[string]bool{
			"#bad-creds":    true,
			"#otp-rejected": true,
		},
		waitAbsent: map[string]bool{},
	}
}

func (d *stubDriver) record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ops = append(d.ops, fmt.Sprintf(format, args...))
}

func (d *stubDriver) Navigate(ctx context.Context, url string) error {
	d.record("navigate %s", url)
	if d.navigateFn != nil {
		return d.navigateFn(ctx, url)
	}
	return nil
}

func (d *stubDriver) Find(ctx context.Context, selector string) (Element, error) {
	d.record("find %s", selector)
	if d.findFn != nil {
		return d.findFn(ctx, selector)
	}
	if d.missing[selector] {
		return Element{}, fmt.Errorf("%q: %w", selector, ErrElementNotFound)
	}
	return Element{Selector: selector}, nil
}

func (d *stubDriver) Fill(ctx context.Context, el Element, text string) error {
	d.record("fill %s %s", el.Selector, text)
	if d.fillFn != nil {
		return d.fillFn(ctx, el, text)
	}
	return nil
}

func (d *stubDriver) Click(ctx context.Context, el Element) error {
	d.record("click %s", el.Selector)
	if d.clickFn != nil {
		return d.clickFn(ctx, el)
	}
	return nil
}

func (d *stubDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	d.record("wait %s", selector)
	if d.waitFn != nil {
		return d.waitFn(ctx, selector, timeout)
	}
	return !d.waitAbsent[selector], nil
}

func (d *stubDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

// countOps counts recorded operations starting with prefix.
func (d *stubDriver) countOps(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, op := range d.ops {
		if strings.HasPrefix(op, prefix) {
			n++
		}
	}
	return n
}

// fillsOf returns the values typed into selector, in order.
func (d *stubDriver) fillsOf(selector string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	prefix := "fill " + selector + " "
	var values []string
	for _, op := range d.ops {
		if strings.HasPrefix(op, prefix) {
			values = append(values, strings.TrimPrefix(op, prefix))
		}
	}
	return values
}

// newTestEngine builds an engine around the stub with test defaults. Options
// run after the defaults and may override any of them.
func newTestEngine(t *testing.T, drv Driver, opts ...func(*Builder)) *Engine {
	t.Helper()
	b := New().
		WithConfig(testEngineConfig()).
		WithCredentials(Credentials{
			Username:   "user@example.com",
			Password:   "hunter2",
			TOTPSecret: testSecret,
		}).
		WithDriver(drv)
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
