package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"billdash/internal/core"
	applog "billdash/internal/log"
	"billdash/internal/optimize"
	"billdash/internal/ports"
	"billdash/internal/report"
)

// Store is everything BillService needs from a backend.
type Store interface {
	ports.BillWriter
	ports.BillEditor
	ports.BillDeleter
	ports.BillLister
	ports.FilterStore
}

// Dashboard is the data behind the main page for one month.
type Dashboard struct {
	Year     int
	Month    int
	Filter   core.CategoryFilter
	Bills    []core.Bill // month bills matching Filter
	Overview report.MonthOverview
}

// OptimizeResult is a selection together with the bills it refers to.
type OptimizeResult struct {
	Selection  optimize.Selection
	Summary    optimize.Summary
	Selected   []core.Bill // in selection order
	Candidates int
}

// BillService orchestrates bill operations on top of a Store
type BillService struct {
	store  Store
	logger *applog.StructuredLogger
	newID  func() string

	mu       sync.RWMutex
	onChange []func()
}

func NewBillService(store Store, logger *applog.Logger) *BillService {
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentBill})
	}
	return &BillService{
		store:  store,
		logger: applog.NewStructuredLogger(logger),
		newID:  uuid.NewString,
	}
}

// OnChange registers fn to run after every successful mutation.
func (s *BillService) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *BillService) changed() {
	s.mu.RLock()
	hooks := s.onChange
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

// CreateBill assigns a fresh id, validates and stores the bill.
func (s *BillService) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b.ID = s.newID()
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	if err := s.store.Add(ctx, b); err != nil {
		s.logger.LogError(ctx, "Failed to store bill", err, applog.ComponentBill, applog.OpCreate, applog.NewFields())
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	s.logger.LogBillChanged(ctx, applog.OpCreate, b.ID, b.Name, b.Amount.Cents, b.Category.String())
	s.changed()
	return b, nil
}

// UpdateBill replaces every field of the bill with the same id.
func (s *BillService) UpdateBill(ctx context.Context, b core.Bill) error {
	if b.ID == "" {
		return core.ErrMissingID
	}
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.store.Edit(ctx, b); err != nil {
		return fmt.Errorf("update bill %s: %w", b.ID, err)
	}
	s.logger.LogBillChanged(ctx, applog.OpUpdate, b.ID, b.Name, b.Amount.Cents, b.Category.String())
	s.changed()
	return nil
}

func (s *BillService) DeleteBill(ctx context.Context, id string) error {
	if id == "" {
		return core.ErrMissingID
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	s.logger.LogBillChanged(ctx, applog.OpDelete, id, "", 0, "")
	s.changed()
	return nil
}

// GetBill returns the bill with the given id.
func (s *BillService) GetBill(ctx context.Context, id string) (core.Bill, error) {
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return core.Bill{}, fmt.Errorf("list bills: %w", err)
	}
	for _, b := range bills {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Bill{}, core.ErrBillNotFound
}

func (s *BillService) SetFilter(ctx context.Context, f core.CategoryFilter) error {
	if err := s.store.SetFilter(ctx, f); err != nil {
		return fmt.Errorf("set filter: %w", err)
	}
	s.changed()
	return nil
}

func (s *BillService) Filter(ctx context.Context) (core.CategoryFilter, error) {
	return s.store.Filter(ctx)
}

// CurrentMonth returns the bills dated in the calendar month of now.
func (s *BillService) CurrentMonth(ctx context.Context, now time.Time) ([]core.Bill, error) {
	today := core.Today(now)
	bills, err := s.store.ListMonth(ctx, today.Year(), today.Month())
	if err != nil {
		return nil, fmt.Errorf("list current month: %w", err)
	}
	return bills, nil
}

// Dashboard builds the month overview from all bills of the month and the
// table from those matching the stored filter.
func (s *BillService) Dashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	month, err := s.CurrentMonth(ctx, now)
	if err != nil {
		return Dashboard{}, err
	}
	filter, err := s.store.Filter(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("read filter: %w", err)
	}
	today := core.Today(now)
	return Dashboard{
		Year:     today.Year(),
		Month:    today.Month(),
		Filter:   filter,
		Bills:    core.FilterBills(month, filter),
		Overview: report.BuildMonthOverview(month, today.Year(), today.Month()),
	}, nil
}

// Optimize runs the budget selector over every bill of the current month.
// The category filter does not apply.
func (s *BillService) Optimize(ctx context.Context, now time.Time, budget core.Money) (OptimizeResult, error) {
	month, err := s.CurrentMonth(ctx, now)
	if err != nil {
		return OptimizeResult{}, err
	}

	sel := optimize.Select(month, budget)

	byID := make(map[string]core.Bill, len(month))
	for _, b := range month {
		byID[b.ID] = b
	}
	selected := make([]core.Bill, 0, sel.Count())
	for _, id := range sel.SelectedIDs {
		selected = append(selected, byID[id])
	}

	s.logger.LogOptimized(ctx, budget.Cents, len(month), sel.Count(), sel.Total.Cents)

	return OptimizeResult{
		Selection:  sel,
		Summary:    optimize.Summarize(budget, sel),
		Selected:   selected,
		Candidates: len(month),
	}, nil
}

// Trend aggregates every stored bill by month.
func (s *BillService) Trend(ctx context.Context) (report.TrendSummary, error) {
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return report.TrendSummary{}, fmt.Errorf("list bills: %w", err)
	}
	return report.BuildTrend(bills), nil
}
