package partner

import (
	"time"

	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/google/uuid"
)

// DefaultVisitListLimit caps visit listings when no limit is given
const DefaultVisitListLimit = 50

// RecordVisitInput is the input for recording a field visit
type RecordVisitInput struct {
	DealerID      uuid.UUID  `json:"dealer_id" binding:"required"`
	SalesPersonID *uuid.UUID `json:"sales_person_id"`
	VisitedAt     time.Time  `json:"visited_at"`
	Notes         string     `json:"notes" binding:"max=2000"`
}

// VisitResponse represents a visit in API responses
type VisitResponse struct {
	ID            uuid.UUID  `json:"id"`
	DealerID      uuid.UUID  `json:"dealer_id"`
	SalesPersonID *uuid.UUID `json:"sales_person_id,omitempty"`
	VisitedAt     time.Time  `json:"visited_at"`
	Notes         string     `json:"notes,omitempty"`
	LastVisitDate *time.Time `json:"dealer_last_visit_date,omitempty"`
}

// ToVisitResponse converts a visit and the dealer it touched
func ToVisitResponse(v *partner.Visit, d *partner.Dealer) VisitResponse {
	resp := VisitResponse{
		ID:            v.ID,
		DealerID:      v.DealerID,
		SalesPersonID: v.SalesPersonID,
		VisitedAt:     v.VisitedAt,
		Notes:         v.Notes,
	}
	if d != nil {
		resp.LastVisitDate = d.LastVisitDate
	}
	return resp
}
