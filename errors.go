package renewer

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSecretFormat reports a TOTP secret that is not valid base32 or
	// decodes to zero bytes. It is fatal and aborts before any network action.
	ErrSecretFormat = errors.New("invalid totp secret format")
	// ErrInvalidCredentials reports a positive invalid-credentials signal
	// from the login page. It is never retried.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTOTPPromptMissing reports that the two-factor prompt did not appear
	// within the bounded wait. The provider flow no longer matches the
	// configured interaction points, so this is not retried.
	ErrTOTPPromptMissing = errors.New("totp prompt not presented")
	// ErrTOTPRejected reports that the submitted one-time code was refused
	// after the single fresh-code resubmission.
	ErrTOTPRejected = errors.New("totp code rejected")
	// ErrAuthFailed is the terminal authentication outcome. The renewal phase
	// is skipped entirely when it is returned.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrHostNotFound reports a configured hostname that is absent from the
	// host-management view. Re-scanning will not make it appear, so it is
	// never retried.
	ErrHostNotFound = errors.New("host not found")
	// ErrElementNotFound is the retriable not-found signal from a Driver.
	ErrElementNotFound = errors.New("element not found")
	// ErrWaitTimeout is the retriable signal for a wait-for-condition step
	// that did not observe its condition within the bounded wait.
	ErrWaitTimeout = errors.New("wait condition timed out")
)
