// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : User account persistence with email-based lookups and the single token-state write path
//   - [SessionRepository] : Focus session persistence with per-user listing
//   - [SettingsRepository] : Upsert-only per-user settings documents
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42, session #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
