package core

import (
	"errors"
	"slices"
	"strings"
	"time"
)

const (
	Utilities   Category = "Utilities"
	Supplies    Category = "Supplies"
	Maintenance Category = "Maintenance"
	Equipment   Category = "Equipment"
	Marketing   Category = "Marketing"
	Other       Category = "Other"
)

// FilterAll is the category filter that matches every bill.
const FilterAll CategoryFilter = "All"

type (
	Category string

	// CategoryFilter is either FilterAll or the name of a Category.
	CategoryFilter string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Bill struct {
		ID       string
		Name     string
		Amount   Money
		Category Category
		Date     Date
	}
)

var (
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidBudget   = errors.New("invalid budget")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidFilter   = errors.New("invalid category filter")
	ErrMissingID       = errors.New("missing bill id")
	ErrBillNotFound    = errors.New("bill not found")
)

// Categories returns the closed set of bill categories in display order.
func Categories() []Category {
	return []Category{Utilities, Supplies, Maintenance, Equipment, Marketing, Other}
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// Validate accepts only the canonical spelling of a category.
func (c Category) Validate() error {
	if !slices.Contains(Categories(), c) {
		return ErrInvalidCategory
	}
	return nil
}

func (c Category) String() string {
	return string(c)
}

// ParseFilter accepts "All" (or an empty string) and any category name.
func ParseFilter(s string) (CategoryFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(FilterAll)) {
		return FilterAll, nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return "", ErrInvalidFilter
	}
	return CategoryFilter(c), nil
}

// Matches reports whether the bill passes the filter.
func (f CategoryFilter) Matches(b Bill) bool {
	return f == "" || f == FilterAll || string(f) == string(b.Category)
}

func (f CategoryFilter) String() string {
	if f == "" {
		return string(FilterAll)
	}
	return string(f)
}

// FilterBills returns the bills matching f, preserving order.
func FilterBills(bills []Bill, f CategoryFilter) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// InMonth returns the bills dated in the given year and month, preserving order.
func InMonth(bills []Bill, year, month int) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if b.Date.Year() == year && b.Date.Month() == month {
			out = append(out, b)
		}
	}
	return out
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current date truncated to midnight UTC.
func Today(now time.Time) Date {
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// Validate rejects negative amounts. Zero-cost bills are legal.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if len(strings.TrimSpace(b.Name)) == 0 {
		return ErrEmptyName
	}
	if len(b.Name) > 200 {
		return ErrNameTooLong
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Category.Validate(); err != nil {
		return err
	}
	if err := b.Date.Validate(); err != nil {
		return err
	}
	return nil
}
