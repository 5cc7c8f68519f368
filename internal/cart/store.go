// Package cart holds the in-memory shopping cart. Lines are identified by
// (product, variant); adding an identity that is already present grows the
// existing line instead of creating a second one.
package cart

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ErrCurrencyMismatch is returned when a candidate is priced in a currency
// other than the one the cart already holds.
var ErrCurrencyMismatch = errors.New("currency differs from cart currency")

// Snapshot is an immutable view of the cart. Version increases with every
// mutation, so listeners can discard snapshots that arrive out of order.
type Snapshot struct {
	Items      []domain.CartItem `json:"items"`
	Currency   string            `json:"currency,omitempty"`
	TotalItems int               `json:"total_items"`
	TotalPrice int64             `json:"total_price"`
	// Total is TotalPrice as a decimal string in Currency, e.g. "39.98".
	Total   string `json:"total,omitempty"`
	Version uint64 `json:"version"`
}

// Listener is notified after each mutation that changed the cart.
type Listener func(Snapshot)

// Store is the cart. The zero value is not usable; call NewStore.
type Store struct {
	mu       sync.RWMutex
	items    []domain.CartItem
	currency string
	version  uint64
	newID    func() string
	logger   *slog.Logger

	subMu   sync.Mutex
	subs    map[uint64]Listener
	nextSub uint64
}

// NewStore returns an empty cart.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		newID:  func() string { return uuid.NewString() },
		logger: logger,
		subs:   make(map[uint64]Listener),
	}
}

// AddItem adds quantity units of c. A quantity below 1 counts as 1. When a
// line with the same product and variant exists its quantity is increased and
// the rest of the line is left as it was; otherwise a new line is appended.
// The only error is ErrCurrencyMismatch, which leaves the cart unchanged.
func (s *Store) AddItem(c domain.Candidate, quantity int) (domain.CartItem, error) {
	c.Currency = strings.ToUpper(c.Currency)
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	if len(s.items) > 0 && s.currency != c.Currency {
		cartCurrency := s.currency
		s.mu.Unlock()
		opsTotal.WithLabelValues("add", "currency_mismatch").Inc()
		return domain.CartItem{}, apperrors.Conflict(
			fmt.Sprintf("cart is priced in %s, item is priced in %s", cartCurrency, c.Currency),
			ErrCurrencyMismatch,
		)
	}

	var line domain.CartItem
	if i := s.indexByKey(c.Key()); i >= 0 {
		s.items[i].Quantity += quantity
		line = s.items[i]
	} else {
		line = domain.CartItem{
			ID:          s.newID(),
			ProductID:   c.ProductID,
			VariantID:   c.VariantID,
			Name:        c.Name,
			Slug:        c.Slug,
			Price:       c.Price,
			Currency:    c.Currency,
			Quantity:    quantity,
			Thumbnail:   c.Thumbnail,
			VariantName: c.VariantName,
		}
		s.items = append(s.items, line)
		s.currency = c.Currency
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	opsTotal.WithLabelValues("add", "applied").Inc()
	s.logger.Debug("item added to cart",
		slog.String("line_id", line.ID),
		slog.String("product_id", line.ProductID),
		slog.String("variant_id", line.VariantID),
		slog.Int("quantity", line.Quantity),
	)
	s.notify(snap)
	return line, nil
}

// RemoveItem deletes the line with the given id. Unknown ids are ignored.
func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	i := s.indexByID(id)
	if i < 0 {
		s.mu.Unlock()
		opsTotal.WithLabelValues("remove", "noop").Inc()
		return
	}
	s.removeLocked(i)
	snap := s.commitLocked()
	s.mu.Unlock()

	opsTotal.WithLabelValues("remove", "applied").Inc()
	s.logger.Debug("item removed from cart", slog.String("line_id", id))
	s.notify(snap)
}

// UpdateQuantity sets the line's quantity. A quantity of zero or less removes
// the line. Unknown ids are ignored.
func (s *Store) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}

	s.mu.Lock()
	i := s.indexByID(id)
	if i < 0 {
		s.mu.Unlock()
		opsTotal.WithLabelValues("update", "noop").Inc()
		return
	}
	s.items[i].Quantity = quantity
	snap := s.commitLocked()
	s.mu.Unlock()

	opsTotal.WithLabelValues("update", "applied").Inc()
	s.logger.Debug("cart quantity updated",
		slog.String("line_id", id),
		slog.Int("quantity", quantity),
	)
	s.notify(snap)
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.currency = ""
	snap := s.commitLocked()
	s.mu.Unlock()

	opsTotal.WithLabelValues("clear", "applied").Inc()
	s.logger.Debug("cart cleared")
	s.notify(snap)
}

// Items returns the lines in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CartItem{}, s.items...)
}

// TotalItems returns the sum of all line quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItemsLocked()
}

// TotalPrice returns the sum of price times quantity, in minor units of
// Currency.
func (s *Store) TotalPrice() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPriceLocked()
}

// Currency returns the cart's currency, or "" for an empty cart.
func (s *Store) Currency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currency
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for change notifications and returns a function that
// unregisters it. fn runs on the goroutine that made the change and must not
// block.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (s *Store) commitLocked() Snapshot {
	if len(s.items) == 0 {
		s.currency = ""
	}
	s.version++
	snap := s.snapshotLocked()
	linesGauge.Set(float64(len(snap.Items)))
	unitsGauge.Set(float64(snap.TotalItems))
	return snap
}

func (s *Store) snapshotLocked() Snapshot {
	total := s.totalPriceLocked()
	var display string
	if len(s.items) > 0 {
		display = domain.FormatMinor(total, s.currency)
	}
	return Snapshot{
		Items:      append([]domain.CartItem{}, s.items...),
		Currency:   s.currency,
		TotalItems: s.totalItemsLocked(),
		TotalPrice: total,
		Total:      display,
		Version:    s.version,
	}
}

func (s *Store) removeLocked(i int) {
	s.items = append(s.items[:i:i], s.items[i+1:]...)
}

func (s *Store) indexByID(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexByKey(k domain.LineKey) int {
	for i := range s.items {
		if s.items[i].Key() == k {
			return i
		}
	}
	return -1
}

func (s *Store) totalItemsLocked() int {
	var n int
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) totalPriceLocked() int64 {
	var total int64
	for _, it := range s.items {
		total += it.Subtotal()
	}
	return total
}
