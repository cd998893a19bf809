// Package order contains the order aggregate and its lifecycle state machine.
//
// An order moves through a fixed graph of statuses:
//
//	processing ──> accepted ──> ready ──> out_for_delivery ──> delivered
//	     │             │          │
//	     └─────────────┴──────────┴──> cancelled
//
// delivered and cancelled are terminal. Which actor role may drive which edge
// is part of the state machine itself: ValidateTransition is a pure function
// over (current, requested, role) with no I/O and no side effects, so the
// whole policy is unit-testable in isolation from storage and networking.
//
// The aggregate keeps an append-only status history. Its version equals the
// history length and increments once per committed mutation, which gives
// callers optimistic concurrency and gives event consumers a per-order
// ordering key.
package order
