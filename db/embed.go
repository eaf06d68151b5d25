// Package db embeds the database schema.
package db

import _ "embed"

// Schema holds the idempotent DDL for programs, the claim ledger, orders,
// coupon redemptions and the order counter.
//
//go:embed migrations/001_schema.sql
var Schema string
