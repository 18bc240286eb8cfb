package alert

import (
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeAlert is the aggregate type for alert events
const AggregateTypeAlert = "Alert"

// EventTypeAlertRaised is published when a new alert is stored
const EventTypeAlertRaised = "AlertRaised"

// AlertRaisedEvent hands a new alert to delivery channels
type AlertRaisedEvent struct {
	shared.BaseDomainEvent
	AlertID  uuid.UUID `json:"alert_id"`
	Kind     Kind      `json:"kind"`
	Target   Target    `json:"target"`
	Severity Severity  `json:"severity"`
	Title    string    `json:"title"`
}

// NewAlertRaisedEvent creates an AlertRaisedEvent
func NewAlertRaisedEvent(a *Alert) *AlertRaisedEvent {
	return &AlertRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlertRaised, AggregateTypeAlert, a.ID),
		AlertID:         a.ID,
		Kind:            a.Kind,
		Target:          a.Target,
		Severity:        a.Severity,
		Title:           a.Title,
	}
}

// EventTypeDiscountApprovalRequested is published when a discount exceeds
// what a sales person may grant alone
const EventTypeDiscountApprovalRequested = "DiscountApprovalRequested"

// DiscountApprovalRequestedEvent asks a manager to approve a discount
type DiscountApprovalRequestedEvent struct {
	shared.BaseDomainEvent
	RequestID uuid.UUID  `json:"request_id"`
	DealerID  uuid.UUID  `json:"dealer_id"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	Percent   float64    `json:"percent"`
	Reason    string     `json:"reason"`
}

// NewDiscountApprovalRequestedEvent creates a DiscountApprovalRequestedEvent
func NewDiscountApprovalRequestedEvent(dealerID uuid.UUID, orderID *uuid.UUID, percent float64, reason string) *DiscountApprovalRequestedEvent {
	requestID := uuid.New()
	return &DiscountApprovalRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDiscountApprovalRequested, AggregateTypeAlert, requestID),
		RequestID:       requestID,
		DealerID:        dealerID,
		OrderID:         orderID,
		Percent:         percent,
		Reason:          reason,
	}
}

// Target returns the order when given, else the dealer
func (e *DiscountApprovalRequestedEvent) Target() Target {
	if e.OrderID != nil && *e.OrderID != uuid.Nil {
		return Target{Kind: EntityKindOrder, ID: *e.OrderID}
	}
	return Target{Kind: EntityKindDealer, ID: e.DealerID}
}
