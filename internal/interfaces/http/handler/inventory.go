package handler

import (
	"context"

	inventoryapp "github.com/dealerops/backend/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryHandler serves stock availability and reservations
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.Service
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// ATPQuery is the query of GET /inventory/atp
type ATPQuery struct {
	ProductID string `form:"product_id" binding:"required,uuid"`
	Location  string `form:"location" binding:"max=100"`
	Quantity  int    `form:"quantity" binding:"gte=0"`
}

// ReserveRequest is the body of POST /inventory/reservations
type ReserveRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Location  string    `json:"location" binding:"max=100"`
	OrderID   uuid.UUID `json:"order_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// StockRequest is the body of POST /inventory/receipts and /inventory/incoming
type StockRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Location  string    `json:"location" binding:"max=100"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// CheckATP answers how much of a product can be promised at a location.
// A shortfall is a 200 with the shortfall set.
//
//	GET /api/v1/inventory/atp?product_id=&location=&quantity=
func (h *InventoryHandler) CheckATP(c *gin.Context) {
	var q ATPQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	res, err := h.inventoryService.CheckATP(c.Request.Context(), uuid.MustParse(q.ProductID), q.Location, q.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Reserve holds stock for an order. Reserving more than is available is a 422.
//
//	POST /api/v1/inventory/reservations
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	res, err := h.inventoryService.Reserve(c.Request.Context(), inventoryapp.ReserveInput{
		ProductID: req.ProductID,
		Location:  req.Location,
		OrderID:   req.OrderID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, res)
}

// Release returns a reservation's quantity to available stock.
//
//	POST /api/v1/inventory/reservations/:id/release
func (h *InventoryHandler) Release(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.inventoryService.Release(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Deliver ships a reservation, reducing on-hand stock.
//
//	POST /api/v1/inventory/reservations/:id/deliver
func (h *InventoryHandler) Deliver(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.inventoryService.Deliver(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Receive books a goods receipt.
//
//	POST /api/v1/inventory/receipts
func (h *InventoryHandler) Receive(c *gin.Context) {
	h.adjust(c, h.inventoryService.Receive)
}

// ExpectIncoming records stock expected to arrive within the incoming horizon.
//
//	POST /api/v1/inventory/incoming
func (h *InventoryHandler) ExpectIncoming(c *gin.Context) {
	h.adjust(c, h.inventoryService.ExpectIncoming)
}

func (h *InventoryHandler) adjust(c *gin.Context, apply func(context.Context, inventoryapp.StockInput) (*inventoryapp.StockPositionResponse, error)) {
	var req StockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	res, err := apply(c.Request.Context(), inventoryapp.StockInput{
		ProductID: req.ProductID,
		Location:  req.Location,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
