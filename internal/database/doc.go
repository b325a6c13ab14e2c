// Package database stores the history of resolution runs in SQLite.
//
// Two tables are kept:
//   - runs: one row per run with its counters, digest and artifact paths
//   - resolutions: one row per distinct link of a run
//
// The database lives in a single file under the XDG data directory and is
// opened through the CGO-free modernc.org/sqlite driver.
package database
