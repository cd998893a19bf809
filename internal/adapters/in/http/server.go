package http

import (
	"errors"
	"net/http"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/actor"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/realtime"

	"github.com/labstack/echo/v4"
)

// Server implements the REST and streaming endpoints of the order service.
// It coordinates between HTTP handlers and application use cases.
type Server struct {
	// Command handlers
	createOrderHandler  commands.CreateOrderCommandHandler
	updateStatusHandler commands.UpdateOrderStatusCommandHandler
	assignHandler       commands.AssignPartnerCommandHandler

	// Query handlers
	getOrderHandler        queries.GetOrderQueryHandler
	getActiveOrdersHandler queries.GetActiveOrdersQueryHandler

	// Realtime plumbing for the event stream
	hub        *realtime.Hub
	registry   *realtime.Registry
	gatekeeper *realtime.Gatekeeper
}

// NewServer creates a new HTTP server with the required handlers.
func NewServer(
	createOrderHandler commands.CreateOrderCommandHandler,
	updateStatusHandler commands.UpdateOrderStatusCommandHandler,
	assignHandler commands.AssignPartnerCommandHandler,
	getOrderHandler queries.GetOrderQueryHandler,
	getActiveOrdersHandler queries.GetActiveOrdersQueryHandler,
	hub *realtime.Hub,
	registry *realtime.Registry,
	gatekeeper *realtime.Gatekeeper,
) *Server {
	return &Server{
		createOrderHandler:     createOrderHandler,
		updateStatusHandler:    updateStatusHandler,
		assignHandler:          assignHandler,
		getOrderHandler:        getOrderHandler,
		getActiveOrdersHandler: getActiveOrdersHandler,
		hub:                    hub,
		registry:               registry,
		gatekeeper:             gatekeeper,
	}
}

// RegisterRoutes attaches all endpoints to the echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/orders", s.CreateOrder)
	api.GET("/orders/:id", s.GetOrder)
	api.POST("/orders/:id/status", s.UpdateOrderStatus)
	api.POST("/orders/:id/partner", s.AssignPartner)
	api.GET("/restaurants/:id/orders/active", s.GetActiveOrders)
	api.GET("/events/stream", s.StreamEvents)
}

// CreateOrder handles POST /api/v1/orders.
//
//	@Summary		Place an order
//	@Description	Creates an order in processing status at version 1. Customers place orders as themselves; admins may place on behalf of a customer via customer_id.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateOrderRequest	true	"order to place"
//	@Success		201		{object}	CreateOrderResponse
//	@Failure		400		{object}	Error
//	@Failure		403		{object}	Error
//	@Router			/orders [post]
func (s *Server) CreateOrder(ctx echo.Context) error {
	who, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	restaurantID, err := kernel.UUIDFromString(req.RestaurantID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid restaurant_id",
		})
	}

	customerID, err := s.resolveCustomer(who, req)
	if err != nil {
		return s.respondError(ctx, err)
	}

	orderID := kernel.NewUUID()
	cmd, err := commands.NewCreateOrderCommand(orderID, customerID, restaurantID)
	if err != nil {
		return s.respondError(ctx, err)
	}

	if err = s.createOrderHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return s.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, CreateOrderResponse{
		OrderID: orderID.String(),
		Status:  order.Processing.String(),
		Version: 1,
	})
}

// UpdateOrderStatus handles POST /api/v1/orders/:id/status.
//
//	@Summary		Change an order's status
//	@Description	Applies one state machine transition on behalf of the acting role. Requesting the current status is an idempotent no-op.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"order id"
//	@Param			request	body		UpdateOrderStatusRequest	true	"requested transition"
//	@Success		200		{object}	UpdateOrderStatusResponse
//	@Failure		400		{object}	Error
//	@Failure		403		{object}	Error
//	@Failure		404		{object}	Error
//	@Failure		409		{object}	Error
//	@Failure		422		{object}	Error
//	@Failure		503		{object}	Error
//	@Router			/orders/{id}/status [post]
func (s *Server) UpdateOrderStatus(ctx echo.Context) error {
	who, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	var req UpdateOrderStatusRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	status, err := order.StatusFromString(req.Status)
	if err != nil {
		return s.respondError(ctx, err)
	}

	cmd, err := commands.NewUpdateOrderStatusCommand(orderID, status, who.Role, req.ExpectedVersion)
	if err != nil {
		return s.respondError(ctx, err)
	}

	result, err := s.updateStatusHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return s.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, UpdateOrderStatusResponse{
		OrderID: result.OrderID.String(),
		Status:  result.Status.String(),
		Version: result.Version,
		Changed: result.Changed,
	})
}

// AssignPartner handles POST /api/v1/orders/:id/partner.
//
//	@Summary		Record the delivery partner for an order
//	@Description	Admin-only: records the partner chosen by the dispatch process. Assignment happens exactly once and does not advance the order version.
//	@Tags			orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"order id"
//	@Param			request	body	AssignPartnerRequest	true	"partner to record"
//	@Success		204
//	@Failure		400	{object}	Error
//	@Failure		403	{object}	Error
//	@Failure		404	{object}	Error
//	@Failure		409	{object}	Error
//	@Router			/orders/{id}/partner [post]
func (s *Server) AssignPartner(ctx echo.Context) error {
	who, err := identityFrom(ctx)
	if err != nil {
		return err
	}
	if who.Role != actor.Admin {
		return s.respondError(ctx,
			errs.NewUnauthorizedRoleError(who.Role.String(), "assign a delivery partner"))
	}

	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	var req AssignPartnerRequest
	if err = ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	partnerID, err := kernel.UUIDFromString(req.PartnerID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid partner_id",
		})
	}

	cmd, err := commands.NewAssignPartnerCommand(orderID, partnerID)
	if err != nil {
		return s.respondError(ctx, err)
	}

	if err = s.assignHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		if errors.Is(err, order.ErrPartnerAlreadyAssigned) {
			return ctx.JSON(http.StatusConflict, Error{
				Code:    http.StatusConflict,
				Message: err.Error(),
			})
		}
		return s.respondError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// GetOrder handles GET /api/v1/orders/:id.
//
//	@Summary		Read one order
//	@Description	Returns the order snapshot with its full status history. Visible to the order's customer, the restaurant's owner, the assigned partner, and admins.
//	@Tags			orders
//	@Produce		json
//	@Param			id	path		string	true	"order id"
//	@Success		200	{object}	OrderView
//	@Failure		403	{object}	Error
//	@Failure		404	{object}	Error
//	@Router			/orders/{id} [get]
func (s *Server) GetOrder(ctx echo.Context) error {
	who, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	// Read visibility follows the same ownership rules as the event stream.
	scope := realtime.Scope{Kind: realtime.ScopeKindOrder, ID: orderID}
	if err = s.gatekeeper.Authorize(ctx.Request().Context(), who.Role, who.ID, scope); err != nil {
		return s.respondError(ctx, err)
	}

	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return s.respondError(ctx, err)
	}

	snapshot, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.respondError(ctx, err)
	}

	view := OrderView{
		ID:           snapshot.ID.String(),
		CustomerID:   snapshot.CustomerID.String(),
		RestaurantID: snapshot.RestaurantID.String(),
		Status:       snapshot.Status.String(),
		Version:      snapshot.Version,
		History:      make([]StatusChangeView, 0, len(snapshot.History)),
	}
	if snapshot.PartnerID != nil {
		partnerID := snapshot.PartnerID.String()
		view.PartnerID = &partnerID
	}
	for _, entry := range snapshot.History {
		view.History = append(view.History, StatusChangeView{
			Status:     entry.Status.String(),
			ActorRole:  entry.ActorRole.String(),
			RecordedAt: entry.RecordedAt,
		})
	}

	return ctx.JSON(http.StatusOK, view)
}

// GetActiveOrders handles GET /api/v1/restaurants/:id/orders/active.
//
//	@Summary		List a restaurant's active orders
//	@Description	Returns all non-terminal orders of the restaurant. Visible to the restaurant's owner and admins.
//	@Tags			restaurants
//	@Produce		json
//	@Param			id	path		string	true	"restaurant id"
//	@Success		200	{array}		OrderView
//	@Failure		403	{object}	Error
//	@Failure		404	{object}	Error
//	@Router			/restaurants/{id}/orders/active [get]
func (s *Server) GetActiveOrders(ctx echo.Context) error {
	who, err := identityFrom(ctx)
	if err != nil {
		return err
	}

	restaurantID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid restaurant id",
		})
	}

	scope := realtime.Scope{Kind: realtime.ScopeKindRestaurant, ID: restaurantID}
	if err = s.gatekeeper.Authorize(ctx.Request().Context(), who.Role, who.ID, scope); err != nil {
		return s.respondError(ctx, err)
	}

	query, err := queries.NewGetActiveOrdersQuery(restaurantID)
	if err != nil {
		return s.respondError(ctx, err)
	}

	activeOrders, err := s.getActiveOrdersHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.respondError(ctx, err)
	}

	views := make([]OrderView, 0, len(activeOrders))
	for _, active := range activeOrders {
		view := OrderView{
			ID:         active.ID.String(),
			CustomerID: active.CustomerID.String(),
			Status:     active.Status.String(),
			Version:    active.Version,
		}
		if active.PartnerID != nil {
			partnerID := active.PartnerID.String()
			view.PartnerID = &partnerID
		}
		views = append(views, view)
	}

	return ctx.JSON(http.StatusOK, views)
}

// resolveCustomer decides whom the order is placed for.
func (s *Server) resolveCustomer(who identity, req CreateOrderRequest) (kernel.UUID, error) {
	switch who.Role {
	case actor.Customer:
		return who.ID, nil
	case actor.Admin:
		if req.CustomerID == "" {
			return kernel.UUID{}, errs.NewValueIsRequiredError("customer_id")
		}
		return kernel.UUIDFromString(req.CustomerID)
	}
	return kernel.UUID{}, errs.NewUnauthorizedRoleError(who.Role.String(), "place an order")
}

// respondError maps domain errors to HTTP status codes:
// not found 404, unauthorized role 403, invalid transition 422, version
// conflict 409, contention 503, bad values 400, everything else 500.
func (s *Server) respondError(ctx echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorizedRole):
		code = http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidTransition):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrVersionConflict):
		code = http.StatusConflict
	case errors.Is(err, errs.ErrResourceBusy):
		code = http.StatusServiceUnavailable
		ctx.Response().Header().Set("Retry-After", "1")
	case errors.Is(err, errs.ErrValueIsRequired), errors.Is(err, errs.ErrValueIsInvalid):
		code = http.StatusBadRequest
	}

	return ctx.JSON(code, Error{
		Code:    code,
		Message: err.Error(),
	})
}
