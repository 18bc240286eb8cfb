package alert

import (
	"time"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/google/uuid"
)

// DefaultDiscountThresholdPct is the largest discount granted without approval
const DefaultDiscountThresholdPct = 3.0

// ListQuery filters alert listings
type ListQuery struct {
	Status     string     `form:"status" binding:"omitempty,oneof=pending resolved dismissed"`
	Kind       string     `form:"kind" binding:"omitempty,oneof=dealer_at_risk missed_commitment discount_approval performance_alert"`
	EntityKind string     `form:"entity_kind" binding:"omitempty,oneof=dealer commitment order product"`
	EntityID   *uuid.UUID `form:"-"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// DiscountRequest asks for a discount on a dealer order
type DiscountRequest struct {
	DealerID uuid.UUID  `json:"dealer_id" binding:"required"`
	OrderID  *uuid.UUID `json:"order_id"`
	Percent  float64    `json:"percent" binding:"required,gt=0,lte=100"`
	Reason   string     `json:"reason" binding:"max=500"`
}

// DiscountDecision tells whether a discount needs manager approval
type DiscountDecision struct {
	RequiresApproval bool           `json:"requires_approval"`
	ThresholdPct     float64        `json:"threshold_pct"`
	Alert            *AlertResponse `json:"alert,omitempty"`
}

// AlertResponse represents an alert in API responses
type AlertResponse struct {
	ID         uuid.UUID      `json:"id"`
	Kind       alert.Kind     `json:"kind"`
	Target     alert.Target   `json:"target"`
	Severity   alert.Severity `json:"severity"`
	Status     alert.Status   `json:"status"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	DedupeKey  string         `json:"dedupe_key"`
	AssignedTo string         `json:"assigned_to"`
	CreatedAt  time.Time      `json:"created_at"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`
}

// ToAlertResponse converts an alert
func ToAlertResponse(a *alert.Alert) AlertResponse {
	return AlertResponse{
		ID:         a.ID,
		Kind:       a.Kind,
		Target:     a.Target,
		Severity:   a.Severity,
		Status:     a.Status,
		Title:      a.Title,
		Message:    a.Message,
		DedupeKey:  a.DedupeKey,
		AssignedTo: a.AssignedTo,
		CreatedAt:  a.CreatedAt,
		ClosedAt:   a.ClosedAt,
	}
}
