// Package renewer implements the renewal orchestration engine for dynamic-DNS
// host records on providers that require username/password plus TOTP
// multi-factor login.
//
// The package is built around an [Engine] assembled through a [Builder]. One
// call to [Engine.Run] performs a complete cycle: authenticate against the
// provider's login flow through an abstract [Driver], discover which of the
// configured hosts are eligible for renewal, renew them, and hand the
// aggregated [RunResult] to the configured [Notifier]. Every network-bound
// step is wrapped in a bounded exponential-backoff retry policy; fatal
// negative signals from the page (invalid credentials, host not found) are
// never retried.
//
// The [Driver] interface isolates the orchestration logic from any concrete
// browser automation backend; the browser subpackage provides a chromedp
// implementation.
package renewer
