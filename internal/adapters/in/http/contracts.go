// Package http exposes the order lifecycle over REST plus a server-sent
// event stream for live status updates. It coordinates between HTTP
// handlers and application use cases; all decisions live below it.
package http

import (
	"time"
)

// Error is the uniform error body.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateOrderRequest is the body for placing an order. CustomerID is only
// honored for admins; customers place orders as themselves.
type CreateOrderRequest struct {
	RestaurantID string `json:"restaurant_id"`
	CustomerID   string `json:"customer_id,omitempty"`
}

// CreateOrderResponse returns the identity of the placed order.
type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Version int    `json:"version"`
}

// UpdateOrderStatusRequest is the body for a status mutation.
// ExpectedVersion is optional; when set, the mutation is rejected with 409
// if the order has moved past that version.
type UpdateOrderStatusRequest struct {
	Status          string `json:"status"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

// UpdateOrderStatusResponse reports the order state after the mutation.
// Changed is false when the request was an idempotent replay.
type UpdateOrderStatusResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Version int    `json:"version"`
	Changed bool   `json:"changed"`
}

// AssignPartnerRequest is the body for recording a delivery partner.
type AssignPartnerRequest struct {
	PartnerID string `json:"partner_id"`
}

// StatusChangeView is one entry of an order's status history.
type StatusChangeView struct {
	Status     string    `json:"status"`
	ActorRole  string    `json:"actor_role"`
	RecordedAt time.Time `json:"recorded_at"`
}

// OrderView is the snapshot of one order. History is present on single
// order reads and omitted in listings.
type OrderView struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	RestaurantID string             `json:"restaurant_id,omitempty"`
	PartnerID    *string            `json:"partner_id,omitempty"`
	Status       string             `json:"status"`
	Version      int                `json:"version"`
	History      []StatusChangeView `json:"history,omitempty"`
}

// StatusEventView is the wire form of one live status event on the stream.
type StatusEventView struct {
	OrderID        string    `json:"order_id"`
	RestaurantID   string    `json:"restaurant_id"`
	PartnerID      *string   `json:"partner_id,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	NewStatus      string    `json:"new_status"`
	ActorRole      string    `json:"actor_role"`
	Version        int       `json:"version"`
	OccurredAt     time.Time `json:"occurred_at"`
}
