// Package db provides the embedded goose migrations for the coupon store.
package db

import "embed"

// Migrations holds the goose SQL migrations under the "migrations" directory.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads from.
const MigrationsDir = "migrations"
