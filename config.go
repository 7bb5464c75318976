package renewer

import (
	"errors"
	"strings"
	"time"
)

// Config carries everything the engine needs besides credentials and the
// concrete driver. Instances are configured once and treated as immutable
// after Build.
type Config struct {
	Service ServiceConfig
	Hosts   []string
	TOTP    TOTPConfig
	Retry   RetryConfig
	Audit   AuditConfig
}

/*
====================================
SERVICE CONFIG
====================================
*/

// ServiceConfig names the stable interaction points of the remote provider:
// the two page URLs, the selector set, and the bounded waits. The engine
// depends on these being supplied externally; it has no knowledge of page
// structure beyond them.
type ServiceConfig struct {
	LoginURL string
	HostsURL string

	Selectors SelectorConfig

	// PageLoadWait bounds the wait for the login form after navigation.
	PageLoadWait time.Duration
	// PromptWait bounds the wait for the TOTP prompt and the post-login
	// landmark.
	PromptWait time.Duration
	// ConfirmWait bounds the wait for the renewal confirmation landmark.
	ConfirmWait time.Duration
}

// SelectorConfig is the named interaction-point set. HostRow and RenewAction
// are templates expanded with the hostname via a single %s verb.
type SelectorConfig struct {
	Username           string
	Password           string
	Submit             string
	InvalidCredentials string
	TOTPInput          string
	TOTPSubmit         string
	Dashboard          string
	TOTPRejected       string
	HostRow            string
	RenewAction        string
	RenewConfirmed     string
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls code derivation. The defaults match RFC 6238 with a
// 30-second period and 6 digits, which is what dynamic-DNS providers use.
type TOTPConfig struct {
	Digits    int
	Period    int // seconds
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

/*
====================================
RETRY CONFIG
====================================
*/

// RetryConfig bounds the exponential-backoff policy that wraps every
// network-dependent step. An operation is attempted once plus MaxRetries
// times; the delay before retry n is min(MaxDelay,
// BaseDelay*ExponentialBase^n), drawn uniformly from [0, delay] when Jitter
// is enabled.
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns the configuration preset for a No-IP style provider.
// Callers override the pieces they need and pass the result to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			LoginURL: "https://www.noip.com/login",
			HostsURL: "https://my.noip.com/dynamic-dns",
			Selectors: SelectorConfig{
				Username:           "input[name='username']",
				Password:           "input[name='password']",
				Submit:             "button[type='submit']",
				InvalidCredentials: ".alert-danger",
				TOTPInput:          "input[name*='code']",
				TOTPSubmit:         "button[type='submit']",
				Dashboard:          "a[href*='logout']",
				TOTPRejected:       ".alert-danger",
				HostRow:            `//tr[contains(., '%s')]`,
				RenewAction:        `//tr[contains(., '%s')]//*[self::button or self::a][contains(., 'Confirm') or contains(., 'Renew')]`,
				RenewConfirmed:     `//*[contains(., 'successfully renewed') or contains(., 'renewed successfully')]`,
			},
			PageLoadWait: 20 * time.Second,
			PromptWait:   10 * time.Second,
			ConfirmWait:  15 * time.Second,
		},
		TOTP: TOTPConfig{
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
		},
		Retry: RetryConfig{
			MaxRetries:      3,
			BaseDelay:       time.Second,
			MaxDelay:        60 * time.Second,
			ExponentialBase: 2.0,
			Jitter:          true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Hosts = append([]string(nil), cfg.Hosts...)
	return out
}

// Validate fails fast on malformed configuration so that no run begins with
// values the engine cannot honor.
func (c *Config) Validate() error {
	// Service
	if c.Service.LoginURL == "" {
		return errors.New("Service LoginURL is required")
	}
	if c.Service.HostsURL == "" {
		return errors.New("Service HostsURL is required")
	}
	sel := c.Service.Selectors
	for _, pair := range []struct {
		name  string
		value string
	}{
		{"Username", sel.Username},
		{"Password", sel.Password},
		{"Submit", sel.Submit},
		{"InvalidCredentials", sel.InvalidCredentials},
		{"TOTPInput", sel.TOTPInput},
		{"TOTPSubmit", sel.TOTPSubmit},
		{"Dashboard", sel.Dashboard},
		{"TOTPRejected", sel.TOTPRejected},
		{"RenewConfirmed", sel.RenewConfirmed},
	} {
		if pair.value == "" {
			return errors.New("Selector " + pair.name + " is required")
		}
	}
	if !strings.Contains(sel.HostRow, "%s") {
		return errors.New("Selector HostRow must contain a %s hostname verb")
	}
	if !strings.Contains(sel.RenewAction, "%s") {
		return errors.New("Selector RenewAction must contain a %s hostname verb")
	}
	if c.Service.PageLoadWait <= 0 {
		return errors.New("Service PageLoadWait must be > 0")
	}
	if c.Service.PromptWait <= 0 {
		return errors.New("Service PromptWait must be > 0")
	}
	if c.Service.ConfirmWait <= 0 {
		return errors.New("Service ConfirmWait must be > 0")
	}

	// Hosts
	if len(c.Hosts) == 0 {
		return errors.New("at least one host is required")
	}
	for _, h := range c.Hosts {
		if strings.TrimSpace(h) == "" {
			return errors.New("host names must be non-empty")
		}
	}

	// TOTP
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 {
		return errors.New("TOTP Period must be >= 15 seconds")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
		// valid (empty treated as SHA1)
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256, or SHA512")
	}

	// Retry
	if c.Retry.MaxRetries < 0 {
		return errors.New("Retry MaxRetries must be >= 0")
	}
	if c.Retry.BaseDelay <= 0 {
		return errors.New("Retry BaseDelay must be > 0")
	}
	if c.Retry.BaseDelay > c.Retry.MaxDelay {
		return errors.New("Retry BaseDelay must be <= MaxDelay")
	}
	if c.Retry.ExponentialBase < 1 {
		return errors.New("Retry ExponentialBase must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
