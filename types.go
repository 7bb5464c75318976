package renewer

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/ddns-tools/renewer/internal/audit"
)

// HostStatus represents the renewal state of a single configured host.
type HostStatus uint8

const (
	// HostActive marks a host that is not eligible for renewal; it is left
	// untouched.
	HostActive HostStatus = iota
	// HostExpiring marks a host whose renewal action is available.
	HostExpiring
	// HostRenewed marks a host whose renewal was confirmed.
	HostRenewed
	// HostFailed marks a host whose renewal failed terminally.
	HostFailed
)

// String returns the lower-case name of the status.
func (s HostStatus) String() string {
	switch s {
	case HostActive:
		return "active"
	case HostExpiring:
		return "expiring"
	case HostRenewed:
		return "renewed"
	case HostFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Credentials carries the provider login material. Instances are immutable
// for the duration of a run; the engine passes them to the authentication
// flow only and never logs the password or secret.
type Credentials struct {
	Username   string
	Password   string
	TOTPSecret string // base32, no padding
}

// TOTPCode is a freshly derived one-time code together with the 30-second
// window it is valid for. A code is never reused across retries; callers must
// derive a new one because time may have advanced into the next window.
type TOTPCode struct {
	Digits      string
	WindowStart time.Time
	WindowEnd   time.Time
}

// MarshalJSON serializes the status by name.
func (s HostStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// HostRecord is the per-host outcome of one run. Status only ever moves
// Active (no-op), Expiring to Renewed, or Expiring to Failed.
type HostRecord struct {
	Hostname string     `json:"hostname"`
	Status   HostStatus `json:"status"`
	// Err holds the last terminal error for a failed host.
	Err string `json:"error,omitempty"`
}

// StageError is one terminal error captured during a run, tagged with the
// stage that produced it.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// RunResult is the aggregate outcome of one orchestration cycle. It is built
// incrementally during [Engine.Run] and treated as immutable once handed to
// the notifier.
type RunResult struct {
	RunID          string       `json:"run_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	LoginSucceeded bool         `json:"login_succeeded"`
	Hosts          []HostRecord `json:"hosts"`
	Errors         []StageError `json:"errors"`
}

// RenewedCount returns the number of hosts renewed during the run.
func (r *RunResult) RenewedCount() int {
	return r.countStatus(HostRenewed)
}

// FailedCount returns the number of hosts that ended in a failed state.
func (r *RunResult) FailedCount() int {
	return r.countStatus(HostFailed)
}

func (r *RunResult) countStatus(status HostStatus) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, h := range r.Hosts {
		if h.Status == status {
			n++
		}
	}
	return n
}

func (r *RunResult) appendError(stage string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, StageError{Stage: stage, Message: err.Error()})
}

// Notifier delivers a completed RunResult over one or more channels. Delivery
// failure must not affect the result already computed; the engine records it
// separately through the audit sink.
type Notifier interface {
	Notify(ctx context.Context, result *RunResult) error
}

// AuditEvent is a structured record emitted for every state transition, retry
// attempt, host outcome, and notification outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes one JSON object per line to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
