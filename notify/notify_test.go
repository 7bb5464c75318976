package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ddns-tools/renewer"
)

func sampleResult() *renewer.RunResult {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &renewer.RunResult{
		RunID:          "run-1",
		StartedAt:      start,
		FinishedAt:     start.Add(42 * time.Second),
		LoginSucceeded: true,
		Hosts: []renewer.HostRecord{
			{Hostname: "home.ddns.net", Status: renewer.HostRenewed},
			{Hostname: "lab.ddns.net", Status: renewer.HostActive},
			{Hostname: "gone.ddns.net", Status: renewer.HostFailed, Err: "host not found in account"},
		},
		Errors: []renewer.StageError{
			{Stage: "renewal", Message: "gone.ddns.net: host not found in account"},
		},
	}
}

func TestRenderMixedResult(t *testing.T) {
	out := Render(sampleResult())

	for _, want := range []string{
		"completed with errors",
		"run-1",
		"Hosts renewed: 1, failed: 1, total: 3",
		"home.ddns.net: renewed",
		"lab.ddns.net: active",
		"gone.ddns.net: failed (host not found in account)",
		"[renewal] gone.ddns.net: host not found in account",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderLoginFailure(t *testing.T) {
	result := sampleResult()
	result.LoginSucceeded = false
	out := Render(result)
	if !strings.Contains(out, "FAILED: login did not succeed") {
		t.Errorf("summary should lead with the login failure:\n%s", out)
	}
}

func TestRenderCleanRun(t *testing.T) {
	result := sampleResult()
	result.Hosts = result.Hosts[:2]
	result.Errors = nil
	out := Render(result)
	if !strings.Contains(out, "completed successfully") {
		t.Errorf("clean run summary:\n%s", out)
	}
	if strings.Contains(out, "Errors:") {
		t.Error("clean run should not list errors")
	}
}

func TestRenderNil(t *testing.T) {
	if out := Render(nil); out != "renewal run: no result" {
		t.Errorf("Render(nil) = %q", out)
	}
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(ctx context.Context, result *renewer.RunResult) error {
	r.calls++
	return r.err
}

func TestMultiDeliversToAll(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	m := Multi{a, nil, b}

	if err := m.Notify(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d, %d; want 1, 1", a.calls, b.calls)
	}
}

func TestMultiContinuesPastFailure(t *testing.T) {
	failing := &recordingNotifier{err: errors.New("smtp down")}
	ok := &recordingNotifier{}
	m := Multi{failing, ok}

	err := m.Notify(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if ok.calls != 1 {
		t.Error("later channels should still be attempted")
	}
	if !strings.Contains(err.Error(), "smtp down") {
		t.Errorf("error should carry the cause: %v", err)
	}
}
