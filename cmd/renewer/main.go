// Command renewer runs one dynamic-DNS renewal cycle against a provider
// account protected by password plus TOTP, or keeps running on a schedule
// in monitor mode.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ddns-tools/renewer"
	"github.com/ddns-tools/renewer/browser"
	"github.com/ddns-tools/renewer/notify"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	var (
		configPath = flag.String("config", "config.json", "path to the JSON configuration file")
		setup      = flag.Bool("setup", false, "interactively create the configuration file and exit")
		testNotify = flag.Bool("test-notify", false, "send a test notification through the configured channels and exit")
		monitor    = flag.Bool("monitor", false, "keep running, repeating the cycle every -interval")
		interval   = flag.Duration("interval", 24*time.Hour, "delay between cycles in monitor mode")
		statePath  = flag.String("state", ".last_renewal", "last-run timestamp file used by monitor mode")
		verbose    = flag.Bool("v", false, "write audit events to stderr")
	)
	flag.Parse()

	if *setup {
		if err := runSetup(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		return 0
	}

	fc, err := loadFileConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *testNotify {
		if err := runTestNotify(ctx, fc); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		fmt.Println("test notification delivered")
		return 0
	}

	if !*monitor {
		code, err := runOnce(ctx, fc, *verbose)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return code
	}

	// Monitor mode: run whenever the last recorded cycle is older than the
	// interval, so restarts do not renew again ahead of schedule. A failed
	// cycle does not stop the schedule.
	for {
		if wait := time.Until(readLastRun(*statePath).Add(*interval)); wait > 0 {
			fmt.Printf("next cycle in %s\n", wait.Round(time.Second))
			select {
			case <-ctx.Done():
				return 0
			case <-time.After(wait):
			}
			continue
		}

		if code, err := runOnce(ctx, fc, *verbose); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		} else if code != 0 {
			fmt.Fprintln(os.Stderr, "cycle finished with failures")
		}
		if err := writeLastRun(*statePath, time.Now()); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}

		select {
		case <-ctx.Done():
			return 0
		default:
		}
	}
}

// readLastRun returns the recorded completion time of the previous cycle, or
// the zero time when no usable record exists.
func readLastRun(path string) time.Time {
	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return t
}

func writeLastRun(path string, t time.Time) error {
	return os.WriteFile(path, []byte(t.UTC().Format(time.RFC3339)+"\n"), 0o644)
}

// runOnce performs a single renewal cycle and reports its exit code.
func runOnce(ctx context.Context, fc *fileConfig, verbose bool) (int, error) {
	notifier, err := fc.notifier()
	if err != nil {
		return 1, err
	}

	sink, closeSink, err := auditSink(fc, verbose)
	if err != nil {
		return 1, err
	}
	defer closeSink()

	session, err := browser.New(ctx, fc.browserOptions())
	if err != nil {
		return 1, err
	}

	engine, err := renewer.New().
		WithConfig(fc.engineConfig()).
		WithCredentials(fc.credentials()).
		WithDriver(session).
		WithNotifier(notifier).
		WithAuditSink(sink).
		Build()
	if err != nil {
		session.Close()
		return 1, err
	}
	defer engine.Close()

	result, runErr := engine.Run(ctx)
	fmt.Print(notify.Render(result))
	if runErr != nil {
		return renewer.ExitCode(result), runErr
	}
	return renewer.ExitCode(result), nil
}

// auditSink wires the audit stream: the configured log file, stderr under
// -v, or nothing.
func auditSink(fc *fileConfig, verbose bool) (renewer.AuditSink, func(), error) {
	if fc.LogFile != "" {
		f, err := os.OpenFile(fc.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return renewer.NewJSONWriterSink(f), func() { f.Close() }, nil
	}
	if verbose {
		return renewer.NewJSONWriterSink(os.Stderr), func() {}, nil
	}
	return nil, func() {}, nil
}

// runTestNotify pushes a synthetic result through every configured channel
// so delivery can be verified without touching the provider.
func runTestNotify(ctx context.Context, fc *fileConfig) error {
	notifier, err := fc.notifier()
	if err != nil {
		return err
	}
	if notifier == nil {
		return errors.New("no notification channels configured")
	}

	now := time.Now()
	result := &renewer.RunResult{
		RunID:          "test-notification",
		StartedAt:      now,
		FinishedAt:     now,
		LoginSucceeded: true,
	}
	return notifier.Notify(ctx, result)
}

// runSetup interactively collects account details and writes the config
// file. Secrets are read without echo.
func runSetup(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists; remove it first to re-run setup", path)
	}

	in := bufio.NewReader(os.Stdin)

	username, err := prompt(in, "Account username (email): ")
	if err != nil {
		return err
	}
	password, err := promptSecret("Account password: ")
	if err != nil {
		return err
	}
	secret, err := promptSecret("TOTP secret (base32): ")
	if err != nil {
		return err
	}
	hostsLine, err := prompt(in, "Hostnames to renew (comma-separated): ")
	if err != nil {
		return err
	}

	var hosts []string
	for _, h := range strings.Split(hostsLine, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if len(hosts) == 0 {
		return errors.New("at least one hostname is required")
	}

	fc := &fileConfig{
		Username:   username,
		Password:   password,
		TOTPSecret: secret,
		Hosts:      hosts,
	}
	if err := fc.save(path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(label string) (string, error) {
	fmt.Print(label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
