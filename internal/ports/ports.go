package ports

import (
	"context"

	"billdash/internal/core"
)

// Ports for outbound adapters.
type (
	BillWriter interface {
		// Add stores a new bill. The bill must already carry its id.
		Add(ctx context.Context, b core.Bill) error
	}

	// BillEditor replaces every field of a stored bill except its id.
	BillEditor interface {
		Edit(ctx context.Context, b core.Bill) error
	}

	BillDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	// BillLister reads bills back in insertion order.
	BillLister interface {
		ListBills(ctx context.Context) ([]core.Bill, error)
		// ListMonth returns the bills dated in the given year and month.
		ListMonth(ctx context.Context, year int, month int) ([]core.Bill, error)
	}

	// FilterStore persists the dashboard category filter.
	FilterStore interface {
		Filter(ctx context.Context) (core.CategoryFilter, error)
		SetFilter(ctx context.Context, f core.CategoryFilter) error
	}
)
