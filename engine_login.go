package renewer

import (
	"context"
	"fmt"
)

// loginState models the authentication flow:
// INIT -> PAGE_LOADED -> CREDENTIALS_SUBMITTED -> TOTP_SUBMITTED ->
// AUTHENTICATED, with AUTH_FAILED terminal from any non-initial state.
type loginState uint8

const (
	stateInit loginState = iota
	statePageLoaded
	stateCredentialsSubmitted
	stateTOTPSubmitted
	stateAuthenticated
	stateAuthFailed
)

func (s loginState) String() string {
	switch s {
	case stateInit:
		return "init"
	case statePageLoaded:
		return "page_loaded"
	case stateCredentialsSubmitted:
		return "credentials_submitted"
	case stateTOTPSubmitted:
		return "totp_submitted"
	case stateAuthenticated:
		return "authenticated"
	case stateAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// authenticate drives the session driver through the login flow. Each
// network-bound transition is individually wrapped by the retry policy; the
// machine as a whole is never retried. A fatal failure at any state returns
// an error wrapping [ErrAuthFailed] and the renewal phase is skipped.
func (e *Engine) authenticate(ctx context.Context) error {
	svc := e.config.Service
	sel := svc.Selectors

	// INIT -> PAGE_LOADED
	if err := e.retry.Do(ctx, "login_page", func(ctx context.Context) error {
		if err := e.driver.Navigate(ctx, svc.LoginURL); err != nil {
			return err
		}
		ready, err := e.driver.WaitFor(ctx, sel.Username, svc.PageLoadWait)
		if err != nil {
			return err
		}
		if !ready {
			return fmt.Errorf("login form: %w", ErrWaitTimeout)
		}
		return nil
	}); err != nil {
		return e.failLogin(ctx, stateInit, err)
	}
	e.emitAudit(ctx, auditEventLoginPageLoaded, true, statePageLoaded.String(), "", 0, nil, nil)

	// PAGE_LOADED -> CREDENTIALS_SUBMITTED. Fill and submit are retried
	// individually; a positive invalid-credentials signal afterwards is
	// fatal and never retried.
	steps := []struct {
		stage    string
		selector string
		run      func(ctx context.Context, el Element) error
	}{
		{"fill_username", sel.Username, func(ctx context.Context, el Element) error {
			return e.driver.Fill(ctx, el, e.creds.Username)
		}},
		{"fill_password", sel.Password, func(ctx context.Context, el Element) error {
			return e.driver.Fill(ctx, el, e.creds.Password)
		}},
		{"submit_credentials", sel.Submit, func(ctx context.Context, el Element) error {
			return e.driver.Click(ctx, el)
		}},
	}
	for _, step := range steps {
		if err := e.retry.Do(ctx, step.stage, func(ctx context.Context) error {
			el, err := e.driver.Find(ctx, step.selector)
			if err != nil {
				return err
			}
			return step.run(ctx, el)
		}); err != nil {
			return e.failLogin(ctx, statePageLoaded, err)
		}
	}
	if e.landmarkPresent(ctx, sel.InvalidCredentials) {
		e.emitAudit(ctx, auditEventInvalidCredentials, false, stateCredentialsSubmitted.String(), "", 0, ErrInvalidCredentials, nil)
		return e.failLogin(ctx, stateCredentialsSubmitted, ErrInvalidCredentials)
	}
	e.emitAudit(ctx, auditEventCredentialsSent, true, stateCredentialsSubmitted.String(), "", 0, nil, nil)

	// CREDENTIALS_SUBMITTED -> TOTP_SUBMITTED. An absent prompt signals a
	// protocol mismatch, not a retriable condition.
	present, err := e.driver.WaitFor(ctx, sel.TOTPInput, svc.PromptWait)
	if err != nil {
		return e.failLogin(ctx, stateCredentialsSubmitted, err)
	}
	if !present {
		e.emitAudit(ctx, auditEventTOTPPromptMissing, false, stateCredentialsSubmitted.String(), "", 0, ErrTOTPPromptMissing, nil)
		return e.failLogin(ctx, stateCredentialsSubmitted, ErrTOTPPromptMissing)
	}
	if err := e.submitTOTP(ctx); err != nil {
		return e.failLogin(ctx, stateCredentialsSubmitted, err)
	}
	e.emitAudit(ctx, auditEventTOTPSubmitted, true, stateTOTPSubmitted.String(), "", 0, nil, nil)

	// TOTP_SUBMITTED -> AUTHENTICATED. A code-rejected signal is retriable
	// exactly once with a freshly generated code, because the 30-second
	// window may have elapsed between generation and submission.
	landed, err := e.driver.WaitFor(ctx, sel.Dashboard, svc.PromptWait)
	if err != nil {
		return e.failLogin(ctx, stateTOTPSubmitted, err)
	}
	if !landed {
		if !e.landmarkPresent(ctx, sel.TOTPRejected) {
			return e.failLogin(ctx, stateTOTPSubmitted, fmt.Errorf("post-login landmark: %w", ErrWaitTimeout))
		}
		e.emitAudit(ctx, auditEventTOTPResubmitted, true, stateTOTPSubmitted.String(), "", 0, nil, nil)
		if err := e.submitTOTP(ctx); err != nil {
			return e.failLogin(ctx, stateTOTPSubmitted, err)
		}
		landed, err = e.driver.WaitFor(ctx, sel.Dashboard, svc.PromptWait)
		if err != nil {
			return e.failLogin(ctx, stateTOTPSubmitted, err)
		}
		if !landed {
			return e.failLogin(ctx, stateTOTPSubmitted, ErrTOTPRejected)
		}
	}

	e.emitAudit(ctx, auditEventLoginSuccess, true, stateAuthenticated.String(), "", 0, nil, nil)
	return nil
}

// submitTOTP derives a fresh code for the current window and enters it.
// Codes are never cached; every call re-derives against the clock.
func (e *Engine) submitTOTP(ctx context.Context) error {
	sel := e.config.Service.Selectors

	code, err := e.totp.Generate(e.creds.TOTPSecret, e.now())
	if err != nil {
		return err
	}
	if err := e.retry.Do(ctx, "fill_totp", func(ctx context.Context) error {
		el, err := e.driver.Find(ctx, sel.TOTPInput)
		if err != nil {
			return err
		}
		return e.driver.Fill(ctx, el, code.Digits)
	}); err != nil {
		return err
	}
	return e.retry.Do(ctx, "submit_totp", func(ctx context.Context) error {
		el, err := e.driver.Find(ctx, sel.TOTPSubmit)
		if err != nil {
			return err
		}
		return e.driver.Click(ctx, el)
	})
}

func (e *Engine) failLogin(ctx context.Context, from loginState, cause error) error {
	e.emitAudit(ctx, auditEventLoginFailure, false, from.String(), "", 0, cause, nil)
	return fmt.Errorf("%w (from %s): %w", ErrAuthFailed, from, cause)
}

// landmarkPresent checks for a page landmark without waiting.
func (e *Engine) landmarkPresent(ctx context.Context, selector string) bool {
	_, err := e.driver.Find(ctx, selector)
	return err == nil
}
