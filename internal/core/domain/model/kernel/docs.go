// Package kernel contains shared value objects used across the domain model.
//
// The kernel holds types that do not belong to any single aggregate: the UUID
// identifier wrapper used for orders, customers, restaurants, partners, and
// live connections. All kernel types are immutable value objects constructed
// through factory functions and safe for concurrent use.
package kernel
