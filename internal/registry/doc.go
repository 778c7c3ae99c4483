// Package registry provides SQLite-backed metadata storage for versioned
// artifacts and the runs that consume and produce them.
//
// The registry records:
//   - Artifacts: a name bound to one type for its whole life
//   - Versions: immutable payload records, numbered v0, v1, ... per name
//   - Aliases: movable labels such as "latest" pointing at one version
//   - Runs: one execution of a job with its recorded configuration
//   - Lineage: which versions a run read (input) and wrote (output)
//
// Payload bytes are not stored here; a version only carries the blob key.
//
// # Ordering
//
// Listings are deterministic: versions ORDER BY version ASC, lineage
// ORDER BY seq ASC. Version numbers are allocated inside the same
// transaction as the insert, so concurrent publishers never share a number.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package registry
