package renewer

import (
	"context"
	"errors"
	"testing"
	"time"
)

type captureNotifier struct {
	calls  int
	result *RunResult
	err    error
}

func (n *captureNotifier) Notify(ctx context.Context, result *RunResult) error {
	n.calls++
	n.result = result
	return n.err
}

func TestRunHappyPath(t *testing.T) {
	stub := newStubDriver()
	notifier := &captureNotifier{}

	engine := newTestEngine(t, stub,
		multiHostConfig("a.ddns.net", "b.ddns.net"),
		func(b *Builder) { b.WithNotifier(notifier) },
	)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !result.LoginSucceeded {
		t.Error("LoginSucceeded should be true")
	}
	if result.RunID == "" {
		t.Error("RunID should be assigned")
	}
	if result.RenewedCount() != 2 || result.FailedCount() != 0 {
		t.Errorf("counts = %d renewed, %d failed", result.RenewedCount(), result.FailedCount())
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %+v", result.Errors)
	}
	if result.FinishedAt.Before(result.StartedAt) {
		t.Error("FinishedAt should not precede StartedAt")
	}

	if notifier.calls != 1 || notifier.result != result {
		t.Errorf("notifier calls = %d, got same result = %v", notifier.calls, notifier.result == result)
	}
	if notifier.result.FinishedAt.IsZero() {
		t.Error("notifier should observe a finished result")
	}

	if stub.closed != 1 {
		t.Errorf("driver closed %d times, want 1", stub.closed)
	}
	if ExitCode(result) != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode(result))
	}
}

func TestRunAuthFailureStillNotifiesAndReleases(t *testing.T) {
	stub := newStubDriver()
	stub.missing["#bad-creds"] = false
	notifier := &captureNotifier{}

	engine := newTestEngine(t, stub, func(b *Builder) { b.WithNotifier(notifier) })

	result, err := engine.Run(context.Background())
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	if result.LoginSucceeded {
		t.Error("LoginSucceeded should be false")
	}
	if len(result.Hosts) != 0 {
		t.Errorf("renewal must not run after a failed login: %+v", result.Hosts)
	}
	if len(result.Errors) != 1 || result.Errors[0].Stage != "auth" {
		t.Errorf("errors = %+v", result.Errors)
	}

	// The failure is visible, not silent.
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
	if stub.closed != 1 {
		t.Errorf("driver closed %d times, want 1", stub.closed)
	}
	if ExitCode(result) != 1 {
		t.Errorf("ExitCode = %d, want 1", ExitCode(result))
	}
	// The hosts page was never visited.
	if n := stub.countOps("navigate " + testEngineConfig().Service.HostsURL); n != 0 {
		t.Errorf("hosts page navigations = %d, want 0", n)
	}
}

func TestRunNotifierFailureDoesNotAlterResult(t *testing.T) {
	stub := newStubDriver()
	notifier := &captureNotifier{err: errors.New("telegram down")}

	engine := newTestEngine(t, stub, func(b *Builder) { b.WithNotifier(notifier) })

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.LoginSucceeded || result.FailedCount() != 0 {
		t.Errorf("delivery failure leaked into the result: %+v", result)
	}
	if ExitCode(result) != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode(result))
	}
}

func TestRunPartialFailureExitCode(t *testing.T) {
	stub := newStubDriver()
	stub.clickFn = func(ctx context.Context, el Element) error {
		if el.Selector == "renew:b.ddns.net" {
			return &DriverError{Op: "click", Reason: "gone", Transient: true}
		}
		return nil
	}

	engine := newTestEngine(t, stub, multiHostConfig("a.ddns.net", "b.ddns.net"))
	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RenewedCount() != 1 || result.FailedCount() != 1 {
		t.Errorf("counts = %d renewed, %d failed", result.RenewedCount(), result.FailedCount())
	}
	if ExitCode(result) != 1 {
		t.Errorf("ExitCode = %d, want 1 on partial failure", ExitCode(result))
	}
}

func TestRunNilEngine(t *testing.T) {
	var engine *Engine
	if _, err := engine.Run(context.Background()); !errors.Is(err, ErrEngineNotReady) {
		t.Errorf("err = %v, want ErrEngineNotReady", err)
	}
}

func TestRunEmitsAuditTrail(t *testing.T) {
	stub := newStubDriver()
	sink := NewChannelSink(128)

	cfg := testEngineConfig()
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 128, DropIfFull: false}

	engine := newTestEngine(t, stub,
		func(b *Builder) { b.WithConfig(cfg) },
		func(b *Builder) { b.WithAuditSink(sink) },
	)

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	engine.Close() // drain

	seen := map[string]int{}
	for {
		select {
		case ev := <-sink.Events():
			seen[ev.EventType]++
			if ev.RunID != result.RunID {
				t.Errorf("event %s carries run id %q, want %q", ev.EventType, ev.RunID, result.RunID)
			}
		default:
			for _, want := range []string{
				"run_started", "login_page_loaded", "credentials_submitted",
				"totp_submitted", "login_success", "host_expiring",
				"host_renewed", "run_completed", "driver_released",
			} {
				if seen[want] == 0 {
					t.Errorf("missing audit event %q (saw %v)", want, seen)
				}
			}
			return
		}
	}
}

func TestBuildValidation(t *testing.T) {
	valid := func() *Builder {
		return New().
			WithConfig(testEngineConfig()).
			WithCredentials(Credentials{Username: "u", Password: "p", TOTPSecret: testSecret}).
			WithDriver(newStubDriver())
	}

	if _, err := valid().Build(); err != nil {
		t.Fatalf("valid builder: %v", err)
	}

	if _, err := valid().WithDriver(nil).Build(); err == nil {
		t.Error("missing driver should fail Build")
	}
	if _, err := valid().WithCredentials(Credentials{TOTPSecret: testSecret}).Build(); err == nil {
		t.Error("missing username should fail Build")
	}
	if _, err := valid().WithCredentials(Credentials{Username: "u", Password: "p", TOTPSecret: "not-base32!"}).Build(); err == nil {
		t.Error("malformed secret should fail Build before any run")
	}

	b := valid()
	if _, err := b.Build(); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(); err == nil {
		t.Error("a builder must not be reusable")
	}
}

func TestRunContextCancellation(t *testing.T) {
	stub := newStubDriver()
	ctx, cancel := context.WithCancel(context.Background())
	stub.waitAbsent["#user"] = true // force the retry path into its sleep
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	engine := newTestEngine(t, stub)
	result, err := engine.Run(ctx)
	if err == nil {
		t.Fatal("cancelled run should report an error")
	}
	if result == nil || result.LoginSucceeded {
		t.Errorf("result = %+v", result)
	}
	if stub.closed != 1 {
		t.Errorf("driver closed %d times, want 1 even on cancellation", stub.closed)
	}
}
