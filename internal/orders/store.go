package orders

import (
	"errors"
	"sync"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

type UrgencyLevel string

const (
	UrgencyAll        UrgencyLevel = "all"
	UrgencyUrgent     UrgencyLevel = "urgent"
	UrgencyVeryUrgent UrgencyLevel = "very-urgent"
)

type SortField string

const (
	SortDefault   SortField = "default"
	SortByID      SortField = "id"
	SortByClient  SortField = "client"
	SortByStatus  SortField = "status"
	SortByCreated SortField = "created_at"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SortConfig struct {
	Field     SortField
	Direction SortDirection
}

func DefaultSortConfig() SortConfig {
	return SortConfig{Field: SortDefault, Direction: SortAsc}
}

// FilterState is the transient view selection. Empty sets mean "no
// restriction".
type FilterState struct {
	SearchTerm       string
	StatusToggles    map[Status]bool
	SelectedProducts map[string]bool
	Urgency          UrgencyLevel
}

func NewFilterState() FilterState {
	return FilterState{
		StatusToggles:    map[Status]bool{},
		SelectedProducts: map[string]bool{},
		Urgency:          UrgencyAll,
	}
}

func (f FilterState) clone() FilterState {
	clone := f
	clone.StatusToggles = make(map[Status]bool, len(f.StatusToggles))
	for status, on := range f.StatusToggles {
		clone.StatusToggles[status] = on
	}
	clone.SelectedProducts = make(map[string]bool, len(f.SelectedProducts))
	for name, on := range f.SelectedProducts {
		clone.SelectedProducts[name] = on
	}
	return clone
}

// Store is the single source of truth for the known orders, the reference
// catalogs and the ephemeral view-selection state. It performs no network
// or rendering side effects. Reads hand out deep copies; the only
// sanctioned in-place edit is ApplyItemStatus, which the mutation
// coordinator uses for the optimistic status toggle.
type Store struct {
	mu sync.Mutex

	orders   []Order
	products []Product
	users    []User

	filter FilterState
	sort   SortConfig

	editingOrderID int
	editing        bool

	seenNotifications map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		filter:            NewFilterState(),
		sort:              DefaultSortConfig(),
		seenNotifications: map[string]struct{}{},
	}
}

// SetOrders replaces the entire order collection.
func (s *Store) SetOrders(list []Order) {
	clones := CloneOrders(list)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = clones
}

// Orders returns a snapshot of the current collection. The snapshot is
// detached: later store mutations do not show through, and mutating it
// does not touch the store.
func (s *Store) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneOrders(s.orders)
}

// OrderByID returns a detached copy of one order.
func (s *Store) OrderByID(id int) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.ID == id {
			return order.Clone(), true
		}
	}
	return Order{}, false
}

// ReplaceOrder swaps in the server representation of an existing order,
// or appends it when unknown (the create path).
func (s *Store) ReplaceOrder(order Order) {
	clone := order.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == clone.ID {
			s.orders[i] = clone
			return
		}
	}
	s.orders = append(s.orders, clone)
}

func (s *Store) RemoveOrder(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyItemStatus sets one item's status in place and reports the status
// it replaced. This is the optimistic-toggle exception to the
// snapshot-only contract; the coordinator calls it again with the
// previous status to roll back.
func (s *Store) ApplyItemStatus(orderID int, ref ItemRef, status Status) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID != orderID {
			continue
		}
		idx := s.orders[i].FindItem(ref)
		if idx < 0 {
			return "", ErrNotFound
		}
		previous := s.orders[i].Items[idx].Status
		s.orders[i].Items[idx].Status = status
		return previous, nil
	}
	return "", ErrNotFound
}

func (s *Store) SetProductCatalog(list []Product) {
	clones := append([]Product(nil), list...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = clones
}

func (s *Store) ProductCatalog() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Product(nil), s.products...)
}

func (s *Store) SetUserCatalog(list []User) {
	clones := append([]User(nil), list...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = clones
}

func (s *Store) UserCatalog() []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]User(nil), s.users...)
}

func (s *Store) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.SearchTerm = term
}

func (s *Store) ToggleStatusFilter(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.StatusToggles[status] {
		delete(s.filter.StatusToggles, status)
		return
	}
	s.filter.StatusToggles[status] = true
}

func (s *Store) SetUrgencyFilter(level UrgencyLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Urgency = level
}

func (s *Store) ToggleProductFilter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filter.SelectedProducts[name] {
		delete(s.filter.SelectedProducts, name)
		return
	}
	s.filter.SelectedProducts[name] = true
}

func (s *Store) ClearProductFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.SelectedProducts = map[string]bool{}
}

func (s *Store) SelectedProductFilters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.filter.SelectedProducts))
	for name, on := range s.filter.SelectedProducts {
		if on {
			names = append(names, name)
		}
	}
	return names
}

func (s *Store) ResetFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = NewFilterState()
}

func (s *Store) FilterState() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.clone()
}

func (s *Store) SetSortConfig(field SortField, direction SortDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = SortConfig{Field: field, Direction: direction}
}

func (s *Store) SortConfig() SortConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// SetEditingOrder marks which order the edit form targets.
func (s *Store) SetEditingOrder(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingOrderID = id
	s.editing = true
}

// ClearEditingOrder returns the form to "create new" mode.
func (s *Store) ClearEditingOrder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingOrderID = 0
	s.editing = false
}

func (s *Store) EditingOrder() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingOrderID, s.editing
}

// MarkNotificationSeen records a deadline-alert key and reports whether
// it was new. Keys live until ClearSeenNotifications.
func (s *Store) MarkNotificationSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.seenNotifications[key]; seen {
		return false
	}
	s.seenNotifications[key] = struct{}{}
	return true
}

func (s *Store) NotificationSeen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seen := s.seenNotifications[key]
	return seen
}

// ClearSeenNotifications resets the per-day alert dedup set.
func (s *Store) ClearSeenNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seenNotifications = map[string]struct{}{}
}
