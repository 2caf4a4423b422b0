// Package database opens and supervises the bun connection (MySQL,
// PostgreSQL or SQLite), loads configuration, keeps the registry of entity
// tables, runs schema migrations and classifies store errors.
package database
