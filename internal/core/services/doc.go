// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - SyncEngine: replicates the selected streams and commits bookmarks
//   - WindowPlanner: walks one-day windows from a bookmark to today
//   - Discovery: builds the catalog from the stream registry
package services
