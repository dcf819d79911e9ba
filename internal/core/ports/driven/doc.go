// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RowSource: Drains every page of an upstream query (Freshcaller paginator)
//   - StreamRegistry: Compiled-in stream descriptors and schemas
//   - Emitter: Output boundary for schemas, records and state (singer writer)
//   - ConfigStore: Tap configuration (JSON/TOML file plus environment)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - StateStore: Durable bookmarks. Without it, state is only emitted.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
