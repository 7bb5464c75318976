package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ddns-tools/renewer"
	"github.com/ddns-tools/renewer/browser"
	"github.com/ddns-tools/renewer/notify"
)

// fileConfig is the on-disk configuration. Delays are expressed in seconds
// so the file stays hand-editable.
type fileConfig struct {
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	TOTPSecret string   `json:"totp_secret"`
	Hosts      []string `json:"hosts"`

	LoginURL string `json:"login_url,omitempty"`
	HostsURL string `json:"hosts_url,omitempty"`

	Retry         *retryFileConfig         `json:"retry,omitempty"`
	Notifications *notificationsFileConfig `json:"notifications,omitempty"`
	Browser       *browserFileConfig       `json:"browser,omitempty"`

	LogFile string `json:"log_file,omitempty"`
}

type retryFileConfig struct {
	MaxRetries      *int     `json:"max_retries,omitempty"`
	BaseDelaySecs   *float64 `json:"base_delay_seconds,omitempty"`
	MaxDelaySecs    *float64 `json:"max_delay_seconds,omitempty"`
	ExponentialBase *float64 `json:"exponential_base,omitempty"`
	Jitter          *bool    `json:"jitter,omitempty"`
}

type notificationsFileConfig struct {
	WebhookURL string              `json:"webhook_url,omitempty"`
	Telegram   *telegramFileConfig `json:"telegram,omitempty"`
	Email      *emailFileConfig    `json:"email,omitempty"`
}

type telegramFileConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type emailFileConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port,omitempty"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

type browserFileConfig struct {
	Headless       *bool    `json:"headless,omitempty"`
	UserAgent      string   `json:"user_agent,omitempty"`
	ExecPath       string   `json:"exec_path,omitempty"`
	NavTimeoutSecs *float64 `json:"nav_timeout_seconds,omitempty"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

func (fc *fileConfig) save(path string) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	// The file carries the account password and TOTP secret.
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// engineConfig maps the file settings onto the engine configuration,
// starting from the built-in defaults.
func (fc *fileConfig) engineConfig() renewer.Config {
	cfg := renewer.DefaultConfig()
	cfg.Hosts = append([]string(nil), fc.Hosts...)

	if fc.LoginURL != "" {
		cfg.Service.LoginURL = fc.LoginURL
	}
	if fc.HostsURL != "" {
		cfg.Service.HostsURL = fc.HostsURL
	}

	if r := fc.Retry; r != nil {
		if r.MaxRetries != nil {
			cfg.Retry.MaxRetries = *r.MaxRetries
		}
		if r.BaseDelaySecs != nil {
			cfg.Retry.BaseDelay = secondsToDuration(*r.BaseDelaySecs)
		}
		if r.MaxDelaySecs != nil {
			cfg.Retry.MaxDelay = secondsToDuration(*r.MaxDelaySecs)
		}
		if r.ExponentialBase != nil {
			cfg.Retry.ExponentialBase = *r.ExponentialBase
		}
		if r.Jitter != nil {
			cfg.Retry.Jitter = *r.Jitter
		}
	}
	return cfg
}

func (fc *fileConfig) credentials() renewer.Credentials {
	return renewer.Credentials{
		Username:   fc.Username,
		Password:   fc.Password,
		TOTPSecret: fc.TOTPSecret,
	}
}

// notifier assembles the configured delivery channels. No channels means a
// nil notifier and the engine skips the hand-off.
func (fc *fileConfig) notifier() (renewer.Notifier, error) {
	nc := fc.Notifications
	if nc == nil {
		return nil, nil
	}

	var channels notify.Multi
	if nc.WebhookURL != "" {
		wh, err := notify.NewWebhook(nc.WebhookURL)
		if err != nil {
			return nil, err
		}
		channels = append(channels, wh)
	}
	if nc.Telegram != nil {
		tg, err := notify.NewTelegram(nc.Telegram.BotToken, nc.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}
	if nc.Email != nil {
		em, err := notify.NewEmail(notify.EmailConfig{
			Host:     nc.Email.Host,
			Port:     nc.Email.Port,
			Username: nc.Email.Username,
			Password: nc.Email.Password,
			From:     nc.Email.From,
			To:       nc.Email.To,
		})
		if err != nil {
			return nil, err
		}
		channels = append(channels, em)
	}

	if len(channels) == 0 {
		return nil, nil
	}
	return channels, nil
}

func (fc *fileConfig) browserOptions() browser.Options {
	opts := browser.DefaultOptions()
	if bc := fc.Browser; bc != nil {
		if bc.Headless != nil {
			opts.Headless = *bc.Headless
		}
		opts.UserAgent = bc.UserAgent
		opts.ExecPath = bc.ExecPath
		if bc.NavTimeoutSecs != nil {
			opts.NavTimeout = secondsToDuration(*bc.NavTimeoutSecs)
		}
	}
	return opts
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
