// Package backoff provides the delay arithmetic behind the engine's retry
// policy: capped exponential growth, full jitter, and context-aware sleep.
package backoff
