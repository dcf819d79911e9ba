// Package memory provides in-memory implementations of driven port interfaces.
// They hold no durable data and are used by tests and one-off runs.
package memory
