package handler

import (
	"time"

	commitmentapp "github.com/dealerops/backend/internal/application/commitment"
	resolverapp "github.com/dealerops/backend/internal/application/resolver"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResolverHandler serves entity resolution
type ResolverHandler struct {
	BaseHandler
	resolverService *resolverapp.Service
}

// NewResolverHandler creates a new ResolverHandler
func NewResolverHandler(resolverService *resolverapp.Service) *ResolverHandler {
	return &ResolverHandler{resolverService: resolverService}
}

// Resolve matches free text against active dealers or products.
// A weak match is a 200 with low_confidence set, not an error.
//
//	POST /api/v1/resolve
func (h *ResolverHandler) Resolve(c *gin.Context) {
	var req resolverapp.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.SalesPersonID = actingSalesPerson(c, req.SalesPersonID)

	res, err := h.resolverService.Resolve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// CommitmentHandler serves the commitment lifecycle endpoints
type CommitmentHandler struct {
	BaseHandler
	commitmentService *commitmentapp.Service
}

// NewCommitmentHandler creates a new CommitmentHandler
func NewCommitmentHandler(commitmentService *commitmentapp.Service) *CommitmentHandler {
	return &CommitmentHandler{commitmentService: commitmentService}
}

// CreateCommitmentRequest is the body of POST /commitments
type CreateCommitmentRequest struct {
	DealerID      uuid.UUID  `json:"dealer_id" binding:"required"`
	ProductID     *uuid.UUID `json:"product_id"`
	SalesPersonID *uuid.UUID `json:"sales_person_id"`
	Quantity      int        `json:"quantity"`
	ExpectedDate  string     `json:"expected_date" binding:"required,datetime=2006-01-02"`
	Confidence    *float64   `json:"confidence" binding:"omitempty,gte=0,lte=1"`
	SourceText    string     `json:"source_text" binding:"max=2000"`
}

// DraftCommitmentRequest is the body of POST /commitments/draft
type DraftCommitmentRequest struct {
	DealerText       string     `json:"dealer_text" binding:"required,max=200"`
	ProductText      string     `json:"product_text" binding:"max=200"`
	Quantity         int        `json:"quantity"`
	ExpectedDate     string     `json:"expected_date" binding:"omitempty,datetime=2006-01-02"`
	ExpectedDateText string     `json:"expected_date_text" binding:"max=100"`
	Confidence       *float64   `json:"confidence" binding:"omitempty,gte=0,lte=1"`
	SalesPersonID    *uuid.UUID `json:"sales_person_id"`
	SourceText       string     `json:"source_text" binding:"max=2000"`
}

// ConsumeRequest is the body of POST /commitments/consume
type ConsumeRequest struct {
	DealerID      uuid.UUID  `json:"dealer_id" binding:"required"`
	ProductID     *uuid.UUID `json:"product_id"`
	OrderQuantity int        `json:"order_quantity" binding:"required,gt=0"`
	AsOf          string     `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// SweepRequest is the optional body of POST /commitments/sweep
type SweepRequest struct {
	AsOf string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// Create records a commitment against known dealer and product IDs.
//
//	POST /api/v1/commitments
func (h *CommitmentHandler) Create(c *gin.Context) {
	var req CreateCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	expected, err := parseDate(req.ExpectedDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	confidence := 1.0
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	resp, err := h.commitmentService.Create(c.Request.Context(), commitmentapp.CreateCommitmentInput{
		DealerID:      req.DealerID,
		ProductID:     req.ProductID,
		SalesPersonID: actingSalesPerson(c, req.SalesPersonID),
		Quantity:      req.Quantity,
		ExpectedDate:  *expected,
		Confidence:    confidence,
		SourceText:    req.SourceText,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CreateFromDraft records a commitment from free-text mentions. When a
// mention does not resolve confidently nothing is stored and the response
// (200, created=false) carries the candidates.
//
//	POST /api/v1/commitments/draft
func (h *CommitmentHandler) CreateFromDraft(c *gin.Context) {
	var req DraftCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	expected, err := parseDate(req.ExpectedDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	res, err := h.commitmentService.CreateFromDraft(c.Request.Context(), commitmentapp.DraftCommitment{
		DealerText:       req.DealerText,
		ProductText:      req.ProductText,
		Quantity:         req.Quantity,
		ExpectedDate:     expected,
		ExpectedDateText: req.ExpectedDateText,
		Confidence:       req.Confidence,
		SalesPersonID:    actingSalesPerson(c, req.SalesPersonID),
		SourceText:       req.SourceText,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if res.Created {
		h.Created(c, res)
		return
	}
	h.Success(c, res)
}

// Get returns one commitment.
//
//	GET /api/v1/commitments/:id
func (h *CommitmentHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.commitmentService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListPending returns a dealer's open commitments in consumption order,
// optionally narrowed to one product.
//
//	GET /api/v1/dealers/:id/commitments/pending?product_id=
func (h *CommitmentHandler) ListPending(c *gin.Context) {
	dealerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.queryUUID(c, "product_id")
	if !ok {
		return
	}
	views, err := h.commitmentService.ListPending(c.Request.Context(), dealerID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, views)
}

// Consume runs an order quantity against the dealer's open commitments.
//
//	POST /api/v1/commitments/consume
func (h *CommitmentHandler) Consume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	res, err := h.commitmentService.Consume(c.Request.Context(), commitmentapp.ConsumeInput{
		DealerID:      req.DealerID,
		ProductID:     req.ProductID,
		OrderQuantity: req.OrderQuantity,
		AsOf:          orZero(asOf),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Sweep marks overdue commitments as missed. The scheduler runs the same
// sweep daily; this endpoint triggers it on demand.
//
//	POST /api/v1/commitments/sweep
func (h *CommitmentHandler) Sweep(c *gin.Context) {
	var req SweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	asOf, err := parseDate(req.AsOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	res, err := h.commitmentService.SweepMissed(c.Request.Context(), orZero(asOf))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Forecast summarizes commitments by expected week.
//
//	GET /api/v1/commitments/forecast?dealer_id=&product_id=&from=&weeks=
func (h *CommitmentHandler) Forecast(c *gin.Context) {
	dealerID, ok := h.queryUUID(c, "dealer_id")
	if !ok {
		return
	}
	productID, ok := h.queryUUID(c, "product_id")
	if !ok {
		return
	}
	from, ok := h.queryDate(c, "from", time.Time{})
	if !ok {
		return
	}
	weeks, ok := h.queryInt(c, "weeks", 0)
	if !ok {
		return
	}

	res, err := h.commitmentService.ForecastConsumption(c.Request.Context(), commitmentapp.ForecastQuery{
		DealerID:  dealerID,
		ProductID: productID,
		From:      from,
		Weeks:     weeks,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
