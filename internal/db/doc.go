// Package db persists pipeline run history in SQLite.
//
// Responsibilities:
//   - Opening the database with the pragmas the tools rely on.
//   - Applying the embedded schema migrations with golang-migrate.
//   - Recording run summaries and per-stage timings, and reading them back.
//
// Dependency rule: db depends on pipeline for the Summary type only. Point
// data and meshes are never stored here; they go to files via codec.
package db
