package http

import (
	"net/http"

	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/labstack/echo/v4"
)

// Identity headers. Authentication happens at the gateway in front of this
// service; by the time a request lands here the headers are trusted.
const (
	HeaderActorRole = "X-Actor-Role"
	HeaderActorID   = "X-Actor-Id"
)

// identity is the acting party of one request.
type identity struct {
	Role actor.Role
	ID   kernel.UUID
}

// identityFrom extracts and validates the actor headers.
func identityFrom(ctx echo.Context) (identity, error) {
	role, err := actor.RoleFromString(ctx.Request().Header.Get(HeaderActorRole))
	if err != nil {
		return identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid "+HeaderActorRole)
	}

	id, err := kernel.UUIDFromString(ctx.Request().Header.Get(HeaderActorID))
	if err != nil {
		return identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid "+HeaderActorID)
	}

	return identity{Role: role, ID: id}, nil
}
