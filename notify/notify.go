// Package notify delivers human-readable run summaries over one or more
// channels. Implementations satisfy the engine's Notifier interface; a
// delivery failure never affects the RunResult already computed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ddns-tools/renewer"
)

// Render formats the aggregate result as a plain-text summary: outcome line,
// host counts, per-host status, and the accumulated error list.
func Render(result *renewer.RunResult) string {
	var b strings.Builder

	switch {
	case result == nil:
		return "renewal run: no result"
	case !result.LoginSucceeded:
		b.WriteString("Renewal run FAILED: login did not succeed\n")
	case result.FailedCount() > 0:
		b.WriteString("Renewal run completed with errors\n")
	default:
		b.WriteString("Renewal run completed successfully\n")
	}

	fmt.Fprintf(&b, "Run %s (%s)\n", result.RunID, result.FinishedAt.Sub(result.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "Hosts renewed: %d, failed: %d, total: %d\n",
		result.RenewedCount(), result.FailedCount(), len(result.Hosts))

	for _, h := range result.Hosts {
		if h.Err != "" {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", h.Hostname, h.Status, h.Err)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", h.Hostname, h.Status)
	}

	if len(result.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "- [%s] %s\n", e.Stage, e.Message)
		}
	}

	return b.String()
}

// Multi fans a result out to every configured channel. All channels are
// attempted even when earlier ones fail; the joined error reports every
// failed delivery.
type Multi []renewer.Notifier

// Notify implements the engine's Notifier interface.
func (m Multi) Notify(ctx context.Context, result *renewer.RunResult) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
