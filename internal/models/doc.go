// Package models defines domain entities and persistence interfaces for the recommendation run history.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: Database-backed models with full lifecycle management
//   - [RecRun] : One refresh of the managed recommendations playlist
//
// 2. Value Rows: Plain structs persisted alongside an entity
//   - [RunTrack] : A run's track listing entry, kept in playlist order
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps, and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
