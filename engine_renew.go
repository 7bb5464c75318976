package renewer

import (
	"context"
	"errors"
	"fmt"
)

// renewHosts runs the discovery and renewal phase. Hosts are processed in
// configured list order; one host's failure never aborts the rest, so a run
// can complete with a mixed result.
func (e *Engine) renewHosts(ctx context.Context, result *RunResult) {
	if err := e.retry.Do(ctx, "hosts_page", func(ctx context.Context) error {
		return e.driver.Navigate(ctx, e.config.Service.HostsURL)
	}); err != nil {
		result.appendError("renewal", err)
		e.emitAudit(ctx, auditEventHostViewFailed, false, "hosts_page", "", 0, err, nil)
		for _, hostname := range e.config.Hosts {
			result.Hosts = append(result.Hosts, HostRecord{
				Hostname: hostname,
				Status:   HostFailed,
				Err:      "host management view unavailable",
			})
		}
		return
	}

	for _, hostname := range e.config.Hosts {
		record := e.renewHost(ctx, hostname)
		if record.Status == HostFailed {
			result.appendError("renewal", fmt.Errorf("%s: %s", hostname, record.Err))
		}
		result.Hosts = append(result.Hosts, record)
	}
}

// renewHost scans one host's entry and renews it when eligible. Eligibility
// is whatever signal the page exposes — the presence of the renewal control
// in the host's row — never a hardcoded day count.
func (e *Engine) renewHost(ctx context.Context, hostname string) HostRecord {
	sel := e.config.Service.Selectors
	record := HostRecord{Hostname: hostname, Status: HostActive}

	// A configured hostname missing from the page will not appear on a
	// re-scan, so this lookup is not retried.
	rowSelector := fmt.Sprintf(sel.HostRow, hostname)
	if _, err := e.driver.Find(ctx, rowSelector); err != nil {
		record.Status = HostFailed
		if errors.Is(err, ErrElementNotFound) {
			record.Err = ErrHostNotFound.Error()
			e.emitAudit(ctx, auditEventHostNotFound, false, "scan", hostname, 0, ErrHostNotFound, nil)
		} else {
			record.Err = err.Error()
			e.emitAudit(ctx, auditEventHostRenewFailed, false, "scan", hostname, 0, err, nil)
		}
		return record
	}

	actionSelector := fmt.Sprintf(sel.RenewAction, hostname)
	if _, err := e.driver.Find(ctx, actionSelector); err != nil {
		if errors.Is(err, ErrElementNotFound) {
			// No renewal control: the host is not close enough to expiry.
			// Renewing early is out of scope and must be avoided.
			e.emitAudit(ctx, auditEventHostActive, true, "scan", hostname, 0, nil, nil)
			return record
		}
		record.Status = HostFailed
		record.Err = err.Error()
		e.emitAudit(ctx, auditEventHostRenewFailed, false, "scan", hostname, 0, err, nil)
		return record
	}

	record.Status = HostExpiring
	e.emitAudit(ctx, auditEventHostExpiring, true, "scan", hostname, 0, nil, nil)

	if err := e.retry.Do(ctx, "renew_host", func(ctx context.Context) error {
		el, err := e.driver.Find(ctx, actionSelector)
		if err != nil {
			return err
		}
		if err := e.driver.Click(ctx, el); err != nil {
			return err
		}
		confirmed, err := e.driver.WaitFor(ctx, sel.RenewConfirmed, e.config.Service.ConfirmWait)
		if err != nil {
			return err
		}
		if !confirmed {
			return fmt.Errorf("renewal confirmation: %w", ErrWaitTimeout)
		}
		return nil
	}); err != nil {
		record.Status = HostFailed
		record.Err = err.Error()
		e.emitAudit(ctx, auditEventHostRenewFailed, false, "renew", hostname, 0, err, nil)
		return record
	}

	record.Status = HostRenewed
	e.emitAudit(ctx, auditEventHostRenewed, true, "renew", hostname, 0, nil, nil)
	return record
}
