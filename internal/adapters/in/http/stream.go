package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/realtime"

	"github.com/labstack/echo/v4"
)

// heartbeatInterval keeps idle stream connections from being reaped by
// intermediaries.
const heartbeatInterval = 30 * time.Second

// StreamEvents handles GET /api/v1/events/stream.
//
// The client names the scopes it wants as a comma separated list, e.g.
// ?scopes=order:<id>,restaurant:<id>. Every scope is authorized against the
// caller's identity before the stream opens; one denied scope rejects the
// whole request. Events are delivered as server-sent events.
//
//	@Summary		Stream live order status events
//	@Description	Opens a server-sent event stream delivering status changes for the requested scopes. Scopes are "order:<id>", "restaurant:<id>" or "partner:<id>".
//	@Tags			events
//	@Produce		text/event-stream
//	@Param			scopes	query		string	true	"comma separated scopes"
//	@Success		200		{string}	string	"event stream"
//	@Failure		400		{object}	Error
//	@Failure		403		{object}	Error
//	@Failure		404		{object}	Error
//	@Router			/events/stream [get]
func (s *Server) StreamEvents(ctx echo.Context) error {
	who, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	scopes, err := parseScopes(ctx.QueryParam("scopes"))
	if err != nil {
		return s.respondError(ctx, err)
	}

	for _, scope := range scopes {
		if err = s.gatekeeper.Authorize(ctx.Request().Context(), who.Role, who.ID, scope); err != nil {
			return s.respondError(ctx, err)
		}
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set(echo.HeaderConnection, "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)
	for _, scope := range scopes {
		s.registry.Join(scope, sub.ID())
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err = writeEvent(resp, event); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err = fmt.Fprint(resp, ": heartbeat\n\n"); err != nil {
				return nil
			}
			resp.Flush()
		}
	}
}

// parseScopes parses "kind:id,kind:id" into validated scopes.
func parseScopes(raw string) ([]realtime.Scope, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errs.NewValueIsRequiredError("scopes")
	}

	parts := strings.Split(raw, ",")
	scopes := make([]realtime.Scope, 0, len(parts))
	for _, part := range parts {
		kindName, idRaw, found := strings.Cut(strings.TrimSpace(part), ":")
		if !found {
			return nil, errs.NewValueIsInvalidErrorWithCause("scopes",
				fmt.Errorf("scope %q is not of the form kind:id", part))
		}

		kind, err := realtime.ScopeKindFromString(kindName)
		if err != nil {
			return nil, err
		}

		id, err := kernel.UUIDFromString(idRaw)
		if err != nil {
			return nil, err
		}

		scope, err := realtime.NewScope(kind, id)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, scope)
	}

	return scopes, nil
}

// writeEvent serializes one status event in SSE framing and flushes it.
func writeEvent(resp *echo.Response, event ports.StatusEvent) error {
	view := StatusEventView{
		OrderID:      event.OrderID.String(),
		RestaurantID: event.RestaurantID.String(),
		NewStatus:    event.New.String(),
		ActorRole:    event.ActorRole.String(),
		Version:      event.Version,
		OccurredAt:   event.OccurredAt,
	}
	if event.Previous != order.Unknown {
		view.PreviousStatus = event.Previous.String()
	}
	if event.PartnerID != nil {
		partnerID := event.PartnerID.String()
		view.PartnerID = &partnerID
	}

	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
