// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - integration.go: web products and the legacy Sku mirror
// - web_order.go: web orders and their line items
// - sync_checkpoint.go: per resource type and storefront sync cursors
// - inventory_lot.go: read-only lot balances used for FIFO cost assignment
package models
