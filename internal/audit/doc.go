// Package audit defines the structured run-event model and the sink
// implementations the engine's dispatcher can deliver to.
package audit
