package renewer

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRunStarted         = "run_started"
	auditEventRunCompleted       = "run_completed"
	auditEventSecretInvalid      = "secret_invalid"
	auditEventLoginPageLoaded    = "login_page_loaded"
	auditEventCredentialsSent    = "credentials_submitted"
	auditEventInvalidCredentials = "invalid_credentials"
	auditEventTOTPPromptMissing  = "totp_prompt_missing"
	auditEventTOTPSubmitted      = "totp_submitted"
	auditEventTOTPResubmitted    = "totp_resubmitted"
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventRetryAttempt       = "retry_attempt"
	auditEventHostActive         = "host_active"
	auditEventHostExpiring       = "host_expiring"
	auditEventHostRenewed        = "host_renewed"
	auditEventHostRenewFailed    = "host_renew_failed"
	auditEventHostNotFound       = "host_not_found"
	auditEventHostViewFailed     = "host_view_unavailable"
	auditEventNotifySent         = "notify_sent"
	auditEventNotifyFailure      = "notify_failure"
	auditEventDriverReleased     = "driver_released"
)

// AuditErrorCode is the normalized error label carried in audit events.
type AuditErrorCode string

const (
	auditErrSecretFormat       AuditErrorCode = "secret_format"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrTOTPPromptMissing  AuditErrorCode = "totp_prompt_missing"
	auditErrTOTPRejected       AuditErrorCode = "totp_rejected"
	auditErrAuthFailed         AuditErrorCode = "auth_failed"
	auditErrHostNotFound       AuditErrorCode = "host_not_found"
	auditErrElementNotFound    AuditErrorCode = "element_not_found"
	auditErrWaitTimeout        AuditErrorCode = "wait_timeout"
	auditErrRetryExhausted     AuditErrorCode = "retry_exhausted"
	auditErrDriver             AuditErrorCode = "driver_error"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	stage string,
	host string,
	attempt int,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RunID:     runIDFromContext(ctx),
		Stage:     stage,
		Host:      host,
		Attempt:   attempt,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// onRetryEvent is the retry policy hook; every backoff attempt emits one
// structured record.
func (e *Engine) onRetryEvent(stage string, attempt int, delay time.Duration, err error) {
	e.emitAudit(context.Background(), auditEventRetryAttempt, false, stage, "", attempt, err, func() map[string]string {
		return map[string]string{
			"delay": delay.String(),
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var exhausted *RetryExhaustedError
	var derr *DriverError

	switch {
	case errors.Is(err, ErrSecretFormat):
		return auditErrSecretFormat
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrTOTPPromptMissing):
		return auditErrTOTPPromptMissing
	case errors.Is(err, ErrTOTPRejected):
		return auditErrTOTPRejected
	case errors.Is(err, ErrHostNotFound):
		return auditErrHostNotFound
	case errors.As(err, &exhausted):
		return auditErrRetryExhausted
	case errors.Is(err, ErrElementNotFound):
		return auditErrElementNotFound
	case errors.Is(err, ErrWaitTimeout):
		return auditErrWaitTimeout
	case errors.Is(err, ErrAuthFailed):
		return auditErrAuthFailed
	case errors.As(err, &derr):
		return auditErrDriver
	default:
		return auditErrInternal
	}
}
