// Package resolver matches free-text mentions of dealers and products to
// canonical master records.
package resolver

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// EntityKind is the kind of record being resolved
type EntityKind string

const (
	EntityKindDealer  EntityKind = "dealer"
	EntityKindProduct EntityKind = "product"
)

// IsValid reports whether the kind is supported
func (k EntityKind) IsValid() bool {
	return k == EntityKindDealer || k == EntityKindProduct
}

const (
	// DefaultThreshold is the minimum score for a confident match
	DefaultThreshold = 0.70
	// DefaultLimit is the number of candidates returned
	DefaultLimit = 3
)

// Entry is one record in the candidate pool
type Entry struct {
	ID      uuid.UUID
	Code    string
	Name    string
	Aliases []string
}

// Candidate is a scored pool entry
type Candidate struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	MatchedOn string    `json:"matched_on"`
	Score     float64   `json:"score"`
}

// Resolution is the outcome of a resolve call. A low-confidence outcome is
// a normal value: TopID is nil and the caller must disambiguate.
type Resolution struct {
	Kind          EntityKind  `json:"kind"`
	Query         string      `json:"query"`
	Candidates    []Candidate `json:"candidates"`
	TopID         *uuid.UUID  `json:"top_id,omitempty"`
	Confidence    float64     `json:"confidence"`
	LowConfidence bool        `json:"low_confidence"`
}

// Matched reports whether a confident top candidate exists
func (r Resolution) Matched() bool {
	return r.TopID != nil
}

// Matcher ranks pool entries by token-sort similarity
type Matcher struct {
	threshold float64
	limit     int
}

// MatcherOption configures a Matcher
type MatcherOption func(*Matcher)

// WithThreshold overrides the confidence threshold
func WithThreshold(threshold float64) MatcherOption {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// WithLimit overrides the number of returned candidates
func WithLimit(limit int) MatcherOption {
	return func(m *Matcher) {
		if limit > 0 {
			m.limit = limit
		}
	}
}

// NewMatcher creates a Matcher
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{threshold: DefaultThreshold, limit: DefaultLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the configured threshold
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match scores every entry against the query using its name and aliases.
// Entries with equal score keep pool order.
func (m *Matcher) Match(kind EntityKind, query string, pool []Entry) Resolution {
	res := Resolution{
		Kind:          kind,
		Query:         query,
		Candidates:    []Candidate{},
		LowConfidence: true,
	}
	if len(pool) == 0 || Normalize(query) == "" {
		return res
	}

	scored := make([]Candidate, 0, len(pool))
	for _, e := range pool {
		best, on := TokenSortRatio(query, e.Name), e.Name
		for _, alias := range e.Aliases {
			if s := TokenSortRatio(query, alias); s > best {
				best, on = s, alias
			}
		}
		if best <= 0 {
			continue
		}
		scored = append(scored, Candidate{
			ID:        e.ID,
			Code:      e.Code,
			Name:      e.Name,
			MatchedOn: on,
			Score:     round4(best),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > m.limit {
		scored = scored[:m.limit]
	}
	res.Candidates = scored
	if len(scored) == 0 {
		return res
	}

	top := scored[0]
	res.Confidence = top.Score
	if top.Score >= m.threshold {
		id := top.ID
		res.TopID = &id
		res.LowConfidence = false
	}
	return res
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
