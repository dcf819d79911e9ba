// Package domain defines the core entities of the Freshcaller tap.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - StreamDescriptor: A stream's endpoint, keys and replication method
//   - Catalog: The declarative listing of streams, schemas and metadata
//   - State: Per-stream bookmarks that survive process restarts
//   - Window: A one-day time interval bounding an incremental query
//   - Value and Record: Typed rows produced by the schema transform
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
