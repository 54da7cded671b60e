// Package catalog turns filter criteria plus a page cursor into one listing
// query and owns the resulting page of product cards.
//
// The current page is replaced wholesale on every successful query, never
// mutated in place. Each fetch is tagged with a monotonic sequence number;
// only the most recently initiated fetch may touch visible state, so a slow
// response can never overwrite a newer one. A failed fetch keeps the last
// good page and surfaces the error instead of flashing an empty listing.
package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/aviete/boutique/internal/errs"
	"github.com/aviete/boutique/internal/model"
)

// Lister runs one filtered, paginated product query.
type Lister interface {
	FilterProducts(ctx context.Context, crit model.FilterCriteria, page, pageSize int) (*model.Page[model.ProductSummary], error)
}

// Snapshot is the view state of the listing at one point in time.
type Snapshot struct {
	Items         []model.ProductSummary
	TotalPages    int
	TotalElements int
	Page          int
	Loading       bool
	Err           string // server-provided message when available, else generic
}

// Service owns the current page of the product listing. Safe for concurrent use.
type Service struct {
	mu       sync.Mutex
	lister   Lister
	pageSize int
	crit     model.FilterCriteria
	page     int
	seq      uint64
	snap     Snapshot
}

// New creates a Service fetching pageSize items per query.
func New(lister Lister, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &Service{lister: lister, pageSize: pageSize}
}

// Apply replaces the criteria, resets the cursor to page 0 and fetches.
func (s *Service) Apply(ctx context.Context, crit model.FilterCriteria) {
	s.mu.Lock()
	s.crit = crit
	s.page = 0
	s.mu.Unlock()
	s.fetch(ctx)
}

// SetPage moves the cursor and fetches; negative pages clamp to 0.
func (s *Service) SetPage(ctx context.Context, page int) {
	if page < 0 {
		page = 0
	}
	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
	s.fetch(ctx)
}

// Refresh re-runs the current query.
func (s *Service) Refresh(ctx context.Context) { s.fetch(ctx) }

// Snapshot returns a copy of the current view state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snap
	out.Items = append([]model.ProductSummary(nil), s.snap.Items...)
	return out
}

func (s *Service) fetch(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	crit := s.crit
	page := s.page
	s.snap.Loading = true
	s.mu.Unlock()

	result, err := s.lister.FilterProducts(ctx, crit, page, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		// A newer fetch has been initiated; this result is stale.
		return
	}
	s.snap.Loading = false
	if err != nil {
		s.snap.Err = errorMessage(err)
		return
	}
	s.snap = Snapshot{
		Items:         result.Content,
		TotalPages:    result.TotalPages,
		TotalElements: result.TotalElements,
		Page:          result.Number,
	}
}

func errorMessage(err error) string {
	var apiErr *errs.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return "failed to load products"
}
