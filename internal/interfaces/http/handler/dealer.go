package handler

import (
	"time"

	partnerapp "github.com/dealerops/backend/internal/application/partner"
	scoringapp "github.com/dealerops/backend/internal/application/scoring"
	"github.com/gin-gonic/gin"
)

// VisitHandler serves field visit logging
type VisitHandler struct {
	BaseHandler
	visitService *partnerapp.VisitService
}

// NewVisitHandler creates a new VisitHandler
func NewVisitHandler(visitService *partnerapp.VisitService) *VisitHandler {
	return &VisitHandler{visitService: visitService}
}

// Record logs a visit. visited_at defaults to now and may not lie in the future.
//
//	POST /api/v1/visits
func (h *VisitHandler) Record(c *gin.Context) {
	var req partnerapp.RecordVisitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.SalesPersonID = actingSalesPerson(c, req.SalesPersonID)

	res, err := h.visitService.RecordVisit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, res)
}

// List returns a dealer's visits, newest first.
//
//	GET /api/v1/dealers/:id/visits?limit=
func (h *VisitHandler) List(c *gin.Context) {
	dealerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	limit, ok := h.queryInt(c, "limit", partnerapp.DefaultVisitListLimit)
	if !ok {
		return
	}
	res, err := h.visitService.ListVisits(c.Request.Context(), dealerID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ScoringHandler serves dealer health and visit planning
type ScoringHandler struct {
	BaseHandler
	scoringService *scoringapp.Service
}

// NewScoringHandler creates a new ScoringHandler
func NewScoringHandler(scoringService *scoringapp.Service) *ScoringHandler {
	return &ScoringHandler{scoringService: scoringService}
}

// Score computes and stores a health snapshot for one dealer.
//
//	POST /api/v1/dealers/:id/health/score?as_of=
func (h *ScoringHandler) Score(c *gin.Context) {
	dealerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.queryDate(c, "as_of", time.Time{})
	if !ok {
		return
	}
	res, err := h.scoringService.ScoreDealer(c.Request.Context(), dealerID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ScoreAll scores every active dealer. The scheduler runs this nightly.
//
//	POST /api/v1/health/score-all?as_of=
func (h *ScoringHandler) ScoreAll(c *gin.Context) {
	asOf, ok := h.queryDate(c, "as_of", time.Time{})
	if !ok {
		return
	}
	res, err := h.scoringService.ScoreAll(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Latest returns the dealer's most recent snapshot.
//
//	GET /api/v1/dealers/:id/health
func (h *ScoringHandler) Latest(c *gin.Context) {
	dealerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.scoringService.LatestHealth(c.Request.Context(), dealerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// History returns snapshots newest first.
//
//	GET /api/v1/dealers/:id/health/history?limit=
func (h *ScoringHandler) History(c *gin.Context) {
	dealerID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	limit, ok := h.queryInt(c, "limit", scoringapp.DefaultHistoryLimit)
	if !ok {
		return
	}
	res, err := h.scoringService.HealthHistory(c.Request.Context(), dealerID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// VisitPlan ranks dealers for field visits. Without sales_person_id the
// X-Sales-Person-ID header scopes the plan; with neither, all dealers rank.
//
//	GET /api/v1/visit-plan?sales_person_id=&as_of=&limit=
func (h *ScoringHandler) VisitPlan(c *gin.Context) {
	salesPersonID, ok := h.queryUUID(c, "sales_person_id")
	if !ok {
		return
	}
	asOf, ok := h.queryDate(c, "as_of", time.Time{})
	if !ok {
		return
	}
	limit, ok := h.queryInt(c, "limit", scoringapp.DefaultVisitPlanSize)
	if !ok {
		return
	}
	res, err := h.scoringService.VisitPlan(c.Request.Context(), scoringapp.VisitPlanQuery{
		SalesPersonID: actingSalesPerson(c, salesPersonID),
		AsOf:          asOf,
		MaxDealers:    limit,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
