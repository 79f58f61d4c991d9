// Package store provides a SQLite notes database that rendered relational
// queries execute against.
//
// The schema is the one the sqlite renderer targets by default:
//
//	notes(path PRIMARY KEY, title, content, folder, file_hash, kind)
//	edges(source, target, type, PRIMARY KEY (source, target, type))
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - case_sensitive_like=ON: LIKE patterns match case, like CONTAINS
//
// Execute binds a Rendered's placeholders by name and returns rows sorted
// by their canonical JSON encoding, so results do not depend on the plan
// SQLite picks.
package store
