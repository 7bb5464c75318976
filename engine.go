package renewer

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Engine sequences one renewal cycle: authentication, host discovery and
// renewal, result aggregation, and notification hand-off. Instances are
// built through [Builder] and hold the session driver exclusively for the
// run's duration. A run is strictly sequential; there is no concurrent
// renewal across hosts because the driver represents one exclusive browser
// session.
type Engine struct {
	config   Config
	creds    Credentials
	driver   Driver
	retry    *retryPolicy
	totp     *totpManager
	audit    *auditDispatcher
	notifier Notifier
	now      func() time.Time
}

// Run performs one complete cycle and returns the aggregated result. The
// result is always built and always handed to the notifier — an
// authentication failure is visible, not silent. The driver is released on
// every exit path. Run returns a non-nil error only for failures that ended
// the cycle early (malformed secret, authentication); per-host renewal
// failures are reported through the result instead.
func (e *Engine) Run(ctx context.Context) (result *RunResult, err error) {
	if e == nil || e.driver == nil {
		return nil, ErrEngineNotReady
	}

	result = &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: e.now(),
	}
	ctx = WithRunID(ctx, result.RunID)
	e.emitAudit(ctx, auditEventRunStarted, true, "init", "", 0, nil, func() map[string]string {
		return map[string]string{
			"hosts": strconv.Itoa(len(e.config.Hosts)),
		}
	})

	defer func() {
		cerr := e.driver.Close()
		e.emitAudit(ctx, auditEventDriverReleased, cerr == nil, "shutdown", "", 0, cerr, nil)
	}()
	defer func() {
		result.FinishedAt = e.now()
		e.dispatchNotification(ctx, result)
		e.emitAudit(ctx, auditEventRunCompleted, result.LoginSucceeded && result.FailedCount() == 0, "shutdown", "", 0, err, nil)
	}()

	// A malformed secret aborts before any network action.
	if _, serr := decodeSecret(e.creds.TOTPSecret); serr != nil {
		result.appendError("init", serr)
		e.emitAudit(ctx, auditEventSecretInvalid, false, "init", "", 0, serr, nil)
		return result, serr
	}

	if aerr := e.authenticate(ctx); aerr != nil {
		result.appendError("auth", aerr)
		return result, aerr
	}
	result.LoginSucceeded = true

	e.renewHosts(ctx, result)
	return result, nil
}

func (e *Engine) dispatchNotification(ctx context.Context, result *RunResult) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, result); err != nil {
		// Delivery failure is not a renewal failure. It is recorded
		// separately and never mutates the result already computed.
		e.emitAudit(ctx, auditEventNotifyFailure, false, "notify", "", 0, err, func() map[string]string {
			return map[string]string{
				"cause": err.Error(),
			}
		})
		return
	}
	e.emitAudit(ctx, auditEventNotifySent, true, "notify", "", 0, nil, nil)
}

// Close drains and stops the audit dispatcher. It does not touch the driver;
// Run owns the driver's lifecycle.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded due to a full
// buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// ExitCode maps an aggregate result to the process exit status: 0 when the
// login succeeded and no host ended in a failed state, 1 otherwise.
func ExitCode(result *RunResult) int {
	if result == nil || !result.LoginSucceeded || result.FailedCount() > 0 {
		return 1
	}
	return 0
}
