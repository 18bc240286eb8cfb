package trade

import (
	"time"

	commitmentapp "github.com/dealerops/backend/internal/application/commitment"
	inventoryapp "github.com/dealerops/backend/internal/application/inventory"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineInput is one requested product line
type OrderLineInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CreateOrderInput is the input for placing a dealer order
type CreateOrderInput struct {
	DealerID uuid.UUID        `json:"dealer_id" binding:"required"`
	Lines    []OrderLineInput `json:"lines" binding:"required,min=1,dive"`
	Location string           `json:"location"`
	AsOf     time.Time        `json:"as_of"`
	Notes    string           `json:"notes" binding:"max=2000"`
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID                      uuid.UUID       `json:"id"`
	ProductID               uuid.UUID       `json:"product_id"`
	ProductCode             string          `json:"product_code"`
	Quantity                int             `json:"quantity"`
	UnitPrice               decimal.Decimal `json:"unit_price"`
	LineTotal               decimal.Decimal `json:"line_total"`
	ConsumedFromCommitments int             `json:"consumed_from_commitments"`
	UnmatchedQuantity       int             `json:"unmatched_quantity"`
}

// OrderResponse represents a sales order in API responses
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber string              `json:"order_number"`
	DealerID    uuid.UUID           `json:"dealer_id"`
	Location    string              `json:"location"`
	OrderDate   string              `json:"order_date"`
	Status      string              `json:"status"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Tax         decimal.Decimal     `json:"tax"`
	Total       decimal.Decimal     `json:"total"`
	Notes       string              `json:"notes,omitempty"`
	Lines       []OrderLineResponse `json:"lines"`
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
	DeliveredAt *time.Time          `json:"delivered_at,omitempty"`
}

// LineOutcome is what happened to one line at intake
type LineOutcome struct {
	ProductID   uuid.UUID                       `json:"product_id"`
	Consumption commitmentapp.ConsumptionResult `json:"consumption"`
	ATP         inventoryapp.ATPResult          `json:"atp"`
}

// CreateOrderResult is the order plus per-line consumption and availability
type CreateOrderResult struct {
	Order OrderResponse `json:"order"`
	Lines []LineOutcome `json:"lines"`
}

// OrderTransitionResult is the order after confirm, cancel or deliver,
// with the reservations that changed.
type OrderTransitionResult struct {
	Order        OrderResponse                      `json:"order"`
	Reservations []inventoryapp.ReservationResponse `json:"reservations"`
}

// ToOrderResponse converts a sales order
func ToOrderResponse(o *trade.SalesOrder) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ID:                      l.ID,
			ProductID:               l.ProductID,
			ProductCode:             l.ProductCode,
			Quantity:                l.Quantity,
			UnitPrice:               l.UnitPrice,
			LineTotal:               l.LineTotal,
			ConsumedFromCommitments: l.FromCommits,
			UnmatchedQuantity:       l.Unmatched,
		})
	}
	return OrderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		DealerID:    o.DealerID,
		Location:    o.Location,
		OrderDate:   o.OrderDate.Format("2006-01-02"),
		Status:      string(o.Status),
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Total:       o.Total,
		Notes:       o.Notes,
		Lines:       lines,
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
		CancelledAt: o.CancelledAt,
		DeliveredAt: o.DeliveredAt,
	}
}
