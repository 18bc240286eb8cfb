// Package resolver exposes entity resolution over the dealer and product
// master data.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/resolver"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResolveRequest asks for the best master records matching free text
type ResolveRequest struct {
	Text          string              `json:"text" binding:"required"`
	Kind          resolver.EntityKind `json:"kind" binding:"required,oneof=dealer product"`
	SalesPersonID *uuid.UUID          `json:"sales_person_id"`
}

// Service resolves dealer and product mentions
type Service struct {
	dealerRepo  partner.DealerRepository
	productRepo catalog.ProductRepository
	matcher     *resolver.Matcher
	logger      *zap.Logger
}

// NewService creates a resolver Service
func NewService(dealerRepo partner.DealerRepository, productRepo catalog.ProductRepository, matcher *resolver.Matcher, logger *zap.Logger) *Service {
	if matcher == nil {
		matcher = resolver.NewMatcher()
	}
	return &Service{
		dealerRepo:  dealerRepo,
		productRepo: productRepo,
		matcher:     matcher,
		logger:      logger,
	}
}

// Resolve matches the text against the active pool of the requested kind.
// A weak match is returned as a low-confidence resolution, not an error.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (resolver.Resolution, error) {
	if !req.Kind.IsValid() {
		return resolver.Resolution{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Unsupported entity kind %q", req.Kind))
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return resolver.Resolution{}, shared.NewDomainError(shared.CodeInvalidInput, "Text to resolve is required")
	}

	pool, err := s.pool(ctx, req.Kind, req.SalesPersonID)
	if err != nil {
		return resolver.Resolution{}, err
	}
	res := s.matcher.Match(req.Kind, text, pool)

	s.logger.Debug("Entity resolved",
		zap.String("kind", string(req.Kind)),
		zap.String("query", text),
		zap.Int("pool_size", len(pool)),
		zap.Float64("confidence", res.Confidence),
		zap.Bool("low_confidence", res.LowConfidence),
	)
	return res, nil
}

func (s *Service) pool(ctx context.Context, kind resolver.EntityKind, salesPersonID *uuid.UUID) ([]resolver.Entry, error) {
	switch kind {
	case resolver.EntityKindDealer:
		dealers, err := s.dealerRepo.FindActive(ctx, salesPersonID)
		if err != nil {
			return nil, fmt.Errorf("failed to load dealer pool: %w", err)
		}
		entries := make([]resolver.Entry, 0, len(dealers))
		for i := range dealers {
			d := &dealers[i]
			entries = append(entries, resolver.Entry{ID: d.ID, Code: d.Code, Name: d.Name, Aliases: d.AliasList()})
		}
		return entries, nil
	default:
		products, err := s.productRepo.FindActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load product pool: %w", err)
		}
		entries := make([]resolver.Entry, 0, len(products))
		for i := range products {
			p := &products[i]
			entries = append(entries, resolver.Entry{ID: p.ID, Code: p.Code, Name: p.Name, Aliases: p.AliasList()})
		}
		return entries, nil
	}
}
