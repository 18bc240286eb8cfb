package partner

import (
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Visit is a recorded field visit by a sales person to a dealer
type Visit struct {
	shared.BaseEntity
	DealerID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	SalesPersonID *uuid.UUID `gorm:"type:uuid;index"`
	VisitedAt     time.Time  `gorm:"not null;index"`
	Notes         string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Visit) TableName() string {
	return "dealer_visits"
}

// NewVisit creates a visit record
func NewVisit(dealerID uuid.UUID, salesPersonID *uuid.UUID, visitedAt time.Time, notes string) (*Visit, error) {
	if dealerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Dealer ID is required")
	}
	if visitedAt.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Visit time is required")
	}
	return &Visit{
		BaseEntity:    shared.NewBaseEntity(),
		DealerID:      dealerID,
		SalesPersonID: salesPersonID,
		VisitedAt:     visitedAt.UTC(),
		Notes:         notes,
	}, nil
}
