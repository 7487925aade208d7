// Package migrations embeds the goose migrations of the local store.
package migrations

import "embed"

// Migrations holds the SQL files in ascending version order.
//
//go:embed *.sql
var Migrations embed.FS

// Seed is the static reference data (crops, pests, fertilizers) in YAML.
//
//go:embed seed.yaml
var Seed []byte
