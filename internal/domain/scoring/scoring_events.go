package scoring

import (
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeDealerHealth is the aggregate type for health events
const AggregateTypeDealerHealth = "DealerHealth"

// EventTypeDealerHealthDropped is published when a dealer falls below the at-risk threshold
const EventTypeDealerHealthDropped = "DealerHealthDropped"

// DealerHealthDroppedEvent carries the snapshot that crossed the threshold
type DealerHealthDroppedEvent struct {
	shared.BaseDomainEvent
	DealerID   uuid.UUID   `json:"dealer_id"`
	SnapshotID uuid.UUID   `json:"snapshot_id"`
	ScoreDate  time.Time   `json:"score_date"`
	Previous   *float64    `json:"previous,omitempty"`
	Total      float64     `json:"total"`
	Label      HealthLabel `json:"label"`
	Reasons    []string    `json:"reasons"`
}

// NewDealerHealthDroppedEvent creates a DealerHealthDroppedEvent
func NewDealerHealthDroppedEvent(s *HealthSnapshot, previous *float64) *DealerHealthDroppedEvent {
	return &DealerHealthDroppedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDealerHealthDropped, AggregateTypeDealerHealth, s.DealerID),
		DealerID:        s.DealerID,
		SnapshotID:      s.ID,
		ScoreDate:       s.ScoreDate,
		Previous:        previous,
		Total:           s.Total,
		Label:           s.Label,
		Reasons:         s.ReasonList(),
	}
}
