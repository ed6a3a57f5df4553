// Package integration contains the storefront synchronization bounded context.
// It reconciles external storefront catalogs and orders into internal web products,
// legacy SKUs and web orders.
//
// Key concepts:
//   - Storefront: one configured remote shop (base URL + key/secret credential)
//   - StorefrontFeed: port for fetching remote products and orders from a storefront
//   - WebProduct / Variation: persisted catalog records keyed by a deterministic identity
//   - WebOrder / LineItem: persisted orders whose lines are resolved to SKUs and FIFO lots
//   - SyncCheckpoint: per resource type and storefront cursor for incremental runs
//   - ProgressSnapshot: the live state of one run, polled by the UI
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
