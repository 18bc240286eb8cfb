package handler

import (
	"context"

	tradeapp "github.com/dealerops/backend/internal/application/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler serves dealer order intake and the order lifecycle
type OrderHandler struct {
	BaseHandler
	orderService *tradeapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *tradeapp.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	DealerID uuid.UUID                 `json:"dealer_id" binding:"required"`
	Lines    []tradeapp.OrderLineInput `json:"lines" binding:"required,min=1,dive"`
	Location string                    `json:"location" binding:"max=100"`
	AsOf     string                    `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
	Notes    string                    `json:"notes" binding:"max=2000"`
}

// Create places an order. Each line consumes the dealer's open commitments
// and reports available-to-promise; a shortfall does not reject the order.
//
//	POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	res, err := h.orderService.CreateOrder(c.Request.Context(), tradeapp.CreateOrderInput{
		DealerID: req.DealerID,
		Lines:    req.Lines,
		Location: req.Location,
		AsOf:     orZero(asOf),
		Notes:    req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, res)
}

// Get returns one order with its lines.
//
//	GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Confirm reserves stock for every line of a draft order.
//
//	POST /api/v1/orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	h.transition(c, h.orderService.ConfirmOrder)
}

// Cancel releases the order's reservations.
//
//	POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.transition(c, h.orderService.CancelOrder)
}

// Deliver ships the order's reservations.
//
//	POST /api/v1/orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	h.transition(c, h.orderService.DeliverOrder)
}

func (h *OrderHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*tradeapp.OrderTransitionResult, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := apply(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
