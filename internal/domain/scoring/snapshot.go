package scoring

import (
	"strings"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// HealthSnapshot is one row of the append-only health score time series
type HealthSnapshot struct {
	shared.BaseEntity
	DealerID    uuid.UUID   `gorm:"type:uuid;not null;index:idx_health_dealer_date,priority:1"`
	ScoreDate   time.Time   `gorm:"type:date;not null;index:idx_health_dealer_date,priority:2"`
	Recency     float64     `gorm:"not null"`
	Frequency   float64     `gorm:"not null"`
	Payment     float64     `gorm:"not null"`
	Fulfillment float64     `gorm:"not null"`
	Total       float64     `gorm:"not null"`
	Label       HealthLabel `gorm:"type:varchar(20);not null"`
	Reasons     string      `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (HealthSnapshot) TableName() string {
	return "health_score_snapshots"
}

const reasonSeparator = "; "

// NewHealthSnapshot records a computed score for a dealer and day
func NewHealthSnapshot(dealerID uuid.UUID, scoreDate time.Time, score HealthScore) *HealthSnapshot {
	return &HealthSnapshot{
		BaseEntity:  shared.NewBaseEntity(),
		DealerID:    dealerID,
		ScoreDate:   shared.Day(scoreDate),
		Recency:     score.Components.Recency,
		Frequency:   score.Components.Frequency,
		Payment:     score.Components.Payment,
		Fulfillment: score.Components.Fulfillment,
		Total:       score.Total,
		Label:       score.Label,
		Reasons:     strings.Join(score.Reasons, reasonSeparator),
	}
}

// ReasonList splits the stored reasons
func (s *HealthSnapshot) ReasonList() []string {
	if s.Reasons == "" {
		return []string{}
	}
	return strings.Split(s.Reasons, reasonSeparator)
}
