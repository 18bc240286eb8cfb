package commitment

import (
	"context"
	"strings"
	"time"

	resolverapp "github.com/dealerops/backend/internal/application/resolver"
	"github.com/dealerops/backend/internal/domain/resolver"
	"github.com/dealerops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultDraftLeadDays is used when a draft names no expected date
const DefaultDraftLeadDays = 7

// ParseExpectedDate interprets the expected date of a draft relative to today.
// It accepts 2006-01-02, "today", "tomorrow" and "next week".
func ParseExpectedDate(text string, today time.Time) (time.Time, error) {
	today = shared.Day(today)
	switch strings.ToLower(strings.Join(strings.Fields(text), " ")) {
	case "":
		return today.AddDate(0, 0, DefaultDraftLeadDays), nil
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "next week":
		return today.AddDate(0, 0, 7), nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, shared.NewDomainError(shared.CodeInvalidCommitment,
			"Expected date must be YYYY-MM-DD, today, tomorrow or next week")
	}
	return t, nil
}

// CreateFromDraft resolves the dealer and product mentioned in a draft and
// records the commitment. Nothing is stored unless every mention resolves
// with confidence.
func (s *Service) CreateFromDraft(ctx context.Context, draft DraftCommitment) (*DraftResult, error) {
	if s.resolver == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Entity resolution is not configured")
	}
	if strings.TrimSpace(draft.DealerText) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidCommitment, "Dealer is required")
	}

	expected := time.Time{}
	if draft.ExpectedDate != nil {
		expected = *draft.ExpectedDate
	} else {
		var err error
		if expected, err = ParseExpectedDate(draft.ExpectedDateText, s.now()); err != nil {
			return nil, err
		}
	}
	confidence := DefaultDraftConfidence
	if draft.Confidence != nil {
		confidence = *draft.Confidence
	}

	dealerRes, err := s.resolver.Resolve(ctx, resolverapp.ResolveRequest{
		Text:          draft.DealerText,
		Kind:          resolver.EntityKindDealer,
		SalesPersonID: draft.SalesPersonID,
	})
	if err != nil {
		return nil, err
	}
	result := &DraftResult{Dealer: dealerRes}

	if strings.TrimSpace(draft.ProductText) != "" {
		productRes, err := s.resolver.Resolve(ctx, resolverapp.ResolveRequest{
			Text: draft.ProductText,
			Kind: resolver.EntityKindProduct,
		})
		if err != nil {
			return nil, err
		}
		result.Product = &productRes
	}

	if !dealerRes.Matched() || (result.Product != nil && !result.Product.Matched()) {
		s.logger.Info("Draft commitment needs disambiguation",
			zap.String("dealer_text", draft.DealerText),
			zap.String("product_text", draft.ProductText),
			zap.Float64("dealer_confidence", dealerRes.Confidence),
		)
		return result, nil
	}

	in := CreateCommitmentInput{
		DealerID:      *dealerRes.TopID,
		SalesPersonID: draft.SalesPersonID,
		Quantity:      draft.Quantity,
		ExpectedDate:  expected,
		Confidence:    confidence,
		SourceText:    draft.SourceText,
	}
	if result.Product != nil {
		in.ProductID = result.Product.TopID
	}
	created, err := s.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	result.Created = true
	result.Commitment = created
	return result, nil
}
