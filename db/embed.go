// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the idempotent DDL for catalog, promotion and order tables.
//
//go:embed migrations/001_schema.sql
var Schema string
