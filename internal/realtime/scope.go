// Package realtime fans committed order status events out to live
// subscribers. A Registry tracks which subscriber listens to which scope,
// a Gatekeeper decides who may listen where, and the Hub delivers events
// without ever letting a slow consumer stall the mutation path.
package realtime

import (
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// ScopeKind identifies the audience class of a scope.
type ScopeKind int

const (
	ScopeKindUnknown ScopeKind = iota
	// ScopeKindOrder is the audience of a single order: the customer who
	// placed it and anyone else cleared for that order.
	ScopeKindOrder
	// ScopeKindRestaurant is the audience of one restaurant's order flow,
	// its owner's dashboard.
	ScopeKindRestaurant
	// ScopeKindPartner is the audience of one delivery partner's
	// assignments.
	ScopeKindPartner
)

func getScopeKindStrings() map[ScopeKind]string {
	return map[ScopeKind]string{
		ScopeKindUnknown:    "unknown",
		ScopeKindOrder:      "order",
		ScopeKindRestaurant: "restaurant",
		ScopeKindPartner:    "partner",
	}
}

func getValidScopeKindStrings() map[string]ScopeKind {
	return map[string]ScopeKind{
		"order":      ScopeKindOrder,
		"restaurant": ScopeKindRestaurant,
		"partner":    ScopeKindPartner,
	}
}

// ScopeKindFromString parses a scope kind from its wire name.
func ScopeKindFromString(name string) (ScopeKind, error) {
	if kind, ok := getValidScopeKindStrings()[name]; ok {
		return kind, nil
	}
	return ScopeKindUnknown, errs.NewValueIsInvalidErrorWithCause("scopeKind",
		fmt.Errorf("unknown scope kind: %s", name))
}

// Validate checks that the kind is one of the defined values.
func (k ScopeKind) Validate() error {
	if _, ok := getScopeKindStrings()[k]; !ok || k == ScopeKindUnknown {
		return errs.NewValueIsInvalidError("scopeKind")
	}
	return nil
}

// String returns the wire name of the kind. Implements fmt.Stringer.
func (k ScopeKind) String() string {
	if name, ok := getScopeKindStrings()[k]; ok {
		return name
	}
	return "unknown"
}

// Scope names one audience for status events, like "order 42" or
// "restaurant 7". Scope is a comparable value and is used as a map key.
type Scope struct {
	Kind ScopeKind
	ID   kernel.UUID
}

// NewScope creates a validated scope.
func NewScope(kind ScopeKind, id kernel.UUID) (Scope, error) {
	if err := kind.Validate(); err != nil {
		return Scope{}, err
	}
	if err := id.Validate(); err != nil {
		return Scope{}, err
	}
	return Scope{Kind: kind, ID: id}, nil
}

// String returns "kind:id", the form used in logs.
func (s Scope) String() string {
	return s.Kind.String() + ":" + s.ID.String()
}
