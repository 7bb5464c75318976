package renewer

import (
	"errors"
	"time"
)

// Builder assembles an [Engine]. A builder is configured once, consumed by
// Build, and not reusable afterwards.
type Builder struct {
	config    Config
	creds     Credentials
	driver    Driver
	notifier  Notifier
	auditSink AuditSink

	now func() time.Time

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		now:    time.Now,
	}
}

// WithConfig replaces the configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentials sets the provider login material.
func (b *Builder) WithCredentials(creds Credentials) *Builder {
	b.creds = creds
	return b
}

// WithDriver sets the session driver the engine will own for the run.
func (b *Builder) WithDriver(d Driver) *Builder {
	b.driver = d
	return b
}

// WithNotifier sets the notification dispatcher that receives the RunResult.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the sink for structured run events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source. Intended for tests; the TOTP window
// is derived from this clock.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and credentials and assembles the
// engine. Malformed values fail fast here, before any run begins.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.driver == nil {
		return nil, errors.New("session driver required")
	}
	if b.creds.Username == "" || b.creds.Password == "" {
		return nil, errors.New("username and password required")
	}
	if _, err := decodeSecret(b.creds.TOTPSecret); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		creds:    b.creds,
		driver:   b.driver,
		notifier: b.notifier,
		now:      b.now,
	}
	if engine.now == nil {
		engine.now = time.Now
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.totp = newTOTPManager(cfg.TOTP)
	engine.retry = newRetryPolicy(cfg.Retry, IsTransient, engine.onRetryEvent)

	b.built = true

	return engine, nil
}
