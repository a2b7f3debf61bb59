// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer free
// of ORM concerns.
//
// Key Principles:
// 1. Domain types carry no GORM tags
// 2. Persistence models contain all GORM annotations and table mappings
// 3. ToDomain/FromDomain convert between the two
// 4. Stores use persistence models for database operations
//
// Structure:
// - base.go: shared timestamp columns
// - inventory.go: catalog-owned stock rows adjusted by the order lifecycle
// - loyalty.go: customer loyalty balances
package models
