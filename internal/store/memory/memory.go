package memory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"billdash/internal/core"
)

// Store keeps bills and the dashboard filter in process memory.
// All mutations take the lock; readers get copies.
type Store struct {
	mu     sync.Mutex
	items  []core.Bill
	filter core.CategoryFilter
}

func New(bills []core.Bill) *Store {
	return &Store{items: slices.Clone(bills), filter: core.FilterAll}
}

// NewFromFiles seeds the store from base/seed_bills.txt when present.
// Each line is "name;amount;category;YYYY-MM-DD"; blank lines and lines
// starting with # are ignored, malformed lines are skipped.
func NewFromFiles(base string) *Store {
	var bills []core.Bill
	for _, line := range readLines(filepath.Join(base, "seed_bills.txt")) {
		b, err := parseSeedLine(line)
		if err != nil {
			slog.Warn("Skipping seed bill", "line", line, "error", err)
			continue
		}
		bills = append(bills, b)
	}
	return New(bills)
}

// Add stores the bill. Ids must be unique.
func (s *Store) Add(_ context.Context, b core.Bill) error {
	if b.ID == "" {
		return core.ErrMissingID
	}
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(b.ID) >= 0 {
		return fmt.Errorf("bill %s already exists", b.ID)
	}
	s.items = append(s.items, b)
	return nil
}

// Edit replaces the bill with the same id in place.
func (s *Store) Edit(_ context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(b.ID)
	if i < 0 {
		return core.ErrBillNotFound
	}
	s.items[i] = b
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.ErrBillNotFound
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *Store) ListMonth(_ context.Context, year int, month int) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.InMonth(s.items, year, month), nil
}

func (s *Store) Filter(_ context.Context) (core.CategoryFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter, nil
}

func (s *Store) SetFilter(_ context.Context, f core.CategoryFilter) error {
	pf, err := core.ParseFilter(string(f))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = pf
	return nil
}

// Ping always succeeds; the store has no external dependency.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op; it lets the store satisfy the backend cleanup contract.
func (s *Store) Close() error {
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(b core.Bill) bool { return b.ID == id })
}

func parseSeedLine(line string) (core.Bill, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 4 {
		return core.Bill{}, fmt.Errorf("expected 4 fields, got %d", len(parts))
	}
	cents, err := core.ParseDecimalToCents(parts[1])
	if err != nil {
		return core.Bill{}, err
	}
	cat, err := core.ParseCategory(parts[2])
	if err != nil {
		return core.Bill{}, err
	}
	date, err := core.ParseDate(parts[3])
	if err != nil {
		return core.Bill{}, err
	}
	b := core.Bill{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(parts[0]),
		Amount:   core.Money{Cents: cents},
		Category: cat,
		Date:     date,
	}
	return b, b.Validate()
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
