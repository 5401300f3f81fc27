// Package models defines domain entities and persistence interfaces for the flowbeat backend.
//
// Persistent entities are database-backed models with full lifecycle management:
//   - [User] : accounts holding profile data and Spotify [TokenState]
//   - [FlowSession] : focus sessions with timing, metrics, and the playlist that soundtracked them
//   - [Settings] : per-user preferences stored as an opaque JSON document
//
// [User] and [FlowSession] implement the Model interface providing ID generation,
// timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
