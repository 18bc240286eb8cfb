package scoring

import (
	"time"

	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/google/uuid"
)

// Health history bounds
const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 365
)

// DefaultVisitPlanSize is the number of dealers a visit plan returns by default
const DefaultVisitPlanSize = 20

// HealthResponse represents a health snapshot in API responses
type HealthResponse struct {
	SnapshotID uuid.UUID                `json:"snapshot_id"`
	DealerID   uuid.UUID                `json:"dealer_id"`
	ScoreDate  string                   `json:"score_date"`
	Total      float64                  `json:"total"`
	Label      scoring.HealthLabel      `json:"label"`
	Components scoring.HealthComponents `json:"components"`
	Reasons    []string                 `json:"reasons"`
	CreatedAt  time.Time                `json:"created_at"`
}

// ScoreResult is the outcome of scoring one dealer
type ScoreResult struct {
	HealthResponse
	DaysSinceLastOrder int      `json:"days_since_last_order"`
	Previous           *float64 `json:"previous,omitempty"`
	Dropped            bool     `json:"dropped"`
}

// ScoreRunResult summarizes a scoring pass over all active dealers
type ScoreRunResult struct {
	Scored  int       `json:"scored"`
	Failed  int       `json:"failed"`
	Dropped int       `json:"dropped"`
	AsOf    time.Time `json:"as_of"`
}

// VisitPlanQuery selects dealers to rank
type VisitPlanQuery struct {
	SalesPersonID *uuid.UUID
	AsOf          time.Time
	MaxDealers    int
}

// VisitPlanEntry is one ranked dealer
type VisitPlanEntry struct {
	Rank       int       `json:"rank"`
	DealerID   uuid.UUID `json:"dealer_id"`
	DealerCode string    `json:"dealer_code"`
	DealerName string    `json:"dealer_name"`
	scoring.VisitPriority
}

// ToHealthResponse converts a stored snapshot
func ToHealthResponse(s *scoring.HealthSnapshot) HealthResponse {
	return HealthResponse{
		SnapshotID: s.ID,
		DealerID:   s.DealerID,
		ScoreDate:  s.ScoreDate.Format("2006-01-02"),
		Total:      s.Total,
		Label:      s.Label,
		Components: scoring.HealthComponents{
			Recency:     s.Recency,
			Frequency:   s.Frequency,
			Payment:     s.Payment,
			Fulfillment: s.Fulfillment,
		},
		Reasons:   s.ReasonList(),
		CreatedAt: s.CreatedAt,
	}
}
