package handler

import (
	"context"

	alertapp "github.com/dealerops/backend/internal/application/alert"
	"github.com/dealerops/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AlertHandler serves the alert inbox and discount requests
type AlertHandler struct {
	BaseHandler
	alertService *alertapp.Service
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alertService *alertapp.Service) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// List returns alerts newest first, paginated.
//
//	GET /api/v1/alerts?status=&kind=&entity_kind=&entity_id=&page=&page_size=
func (h *AlertHandler) List(c *gin.Context) {
	var q alertapp.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	entityID, ok := h.queryUUID(c, "entity_id")
	if !ok {
		return
	}
	q.EntityID = entityID

	alerts, total, err := h.alertService.List(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page := max(q.Page, 1)
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = dto.DefaultPageSize
	}
	h.SuccessWithMeta(c, alerts, total, page, pageSize)
}

// Resolve closes an alert as handled.
//
//	POST /api/v1/alerts/:id/resolve
func (h *AlertHandler) Resolve(c *gin.Context) {
	h.close(c, h.alertService.Resolve)
}

// Dismiss closes an alert without action.
//
//	POST /api/v1/alerts/:id/dismiss
func (h *AlertHandler) Dismiss(c *gin.Context) {
	h.close(c, h.alertService.Dismiss)
}

func (h *AlertHandler) close(c *gin.Context, apply func(context.Context, uuid.UUID) (*alertapp.AlertResponse, error)) {
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

// RequestDiscount checks a discount against the approval threshold. Above
// it an approval alert is raised and returned with the decision.
//
//	POST /api/v1/discounts
func (h *AlertHandler) RequestDiscount(c *gin.Context) {
	var req alertapp.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	res, err := h.alertService.RequestDiscount(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
