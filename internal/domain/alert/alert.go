// Package alert models operational alerts raised for sales managers.
package alert

import (
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntityKind tags what an alert is about. Consumers switch on the kind
// instead of guessing from column names.
type EntityKind string

const (
	EntityKindDealer     EntityKind = "dealer"
	EntityKindCommitment EntityKind = "commitment"
	EntityKindOrder      EntityKind = "order"
	EntityKindProduct    EntityKind = "product"
)

// IsValid reports whether the kind is known
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindDealer, EntityKindCommitment, EntityKindOrder, EntityKindProduct:
		return true
	}
	return false
}

// Target is the tagged reference an alert points at
type Target struct {
	Kind EntityKind `gorm:"column:entity_kind;type:varchar(20);not null" json:"entity_kind"`
	ID   uuid.UUID  `gorm:"column:entity_id;type:uuid;not null" json:"entity_id"`
}

// String renders kind:id
func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// Kind is the alert type
type Kind string

const (
	KindDealerAtRisk     Kind = "dealer_at_risk"
	KindMissedCommitment Kind = "missed_commitment"
	KindDiscountApproval Kind = "discount_approval"
	KindPerformance      Kind = "performance_alert"
)

// Severity is the alert severity
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Status is the alert lifecycle state
type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// AssigneeManager is the default role alerts are routed to
const AssigneeManager = "manager"

// Alert is raised by the dispatcher and closed by an external actor
type Alert struct {
	shared.BaseAggregateRoot
	Kind       Kind       `gorm:"type:varchar(30);not null;index"`
	Target     Target     `gorm:"embedded"`
	Severity   Severity   `gorm:"type:varchar(20);not null"`
	Status     Status     `gorm:"type:varchar(20);not null;default:'pending';index"`
	Title      string     `gorm:"type:varchar(200);not null"`
	Message    string     `gorm:"type:text;not null"`
	DedupeKey  string     `gorm:"type:varchar(255);not null;index"`
	AssignedTo string     `gorm:"type:varchar(50);not null;default:'manager'"`
	ClosedAt   *time.Time `gorm:"type:timestamp"`
}

// TableName returns the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// DedupeKey identifies the underlying condition of an alert. Two alerts with
// the same key describe the same condition.
func DedupeKey(kind Kind, target Target, trigger string) string {
	return fmt.Sprintf("%s:%s:%s", kind, target, trigger)
}

// NewAlert creates a pending alert
func NewAlert(kind Kind, target Target, severity Severity, trigger, title, message string) (*Alert, error) {
	if !target.Kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown entity kind %q", target.Kind))
	}
	if target.ID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Alert target ID is required")
	}
	if trigger == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Alert trigger is required")
	}
	if severity == "" {
		severity = SeverityMedium
	}
	a := &Alert{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		Target:            target,
		Severity:          severity,
		Status:            StatusPending,
		Title:             title,
		Message:           message,
		DedupeKey:         DedupeKey(kind, target, trigger),
		AssignedTo:        AssigneeManager,
	}
	a.AddDomainEvent(NewAlertRaisedEvent(a))
	return a, nil
}

// IsPending reports whether the alert is still open
func (a *Alert) IsPending() bool {
	return a.Status == StatusPending
}

// Resolve closes the alert as handled
func (a *Alert) Resolve() error {
	return a.close(StatusResolved)
}

// Dismiss closes the alert as not actionable
func (a *Alert) Dismiss() error {
	return a.close(StatusDismissed)
}

func (a *Alert) close(to Status) error {
	if !a.IsPending() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Alert is already %s", a.Status))
	}
	now := time.Now().UTC()
	a.Status = to
	a.ClosedAt = &now
	a.IncrementVersion()
	return nil
}
