package store

import (
	"context"
	"sync"

	"github.com/franckalain/eatsmarty/internal/models"
)

const (
	// ProductsKey is the document key of the product state
	ProductsKey = "eatsmarty-products"

	// HistoryLimit caps the number of recent products kept
	HistoryLimit = 10
)

// ProductState is the persisted product document
type ProductState struct {
	Scanned *models.Product  `json:"scanned_product"`
	Recent  []models.Product `json:"recent_products"`
}

func (s ProductState) clone() ProductState {
	out := ProductState{Recent: make([]models.Product, len(s.Recent))}
	if s.Scanned != nil {
		p := s.Scanned.Clone()
		out.Scanned = &p
	}
	for i, p := range s.Recent {
		out.Recent[i] = p.Clone()
	}
	return out
}

// ProductStore holds the last scanned product and the recent products list.
// Recent is ordered most recent first, has no two entries with the same id
// and never exceeds HistoryLimit entries.
type ProductStore struct {
	mu        sync.Mutex
	persister Persister
	state     ProductState
	subs      subscribers[ProductState]
}

// NewProductStore creates an empty store backed by p
func NewProductStore(p Persister) *ProductStore {
	return &ProductStore{
		persister: p,
		state:     ProductState{Recent: []models.Product{}},
	}
}

// Load replaces the in-memory state with the persisted document. A missing
// document leaves the store empty.
func (s *ProductStore) Load(ctx context.Context) error {
	var st ProductState
	found, err := loadJSON(ctx, s.persister, ProductsKey, &st)
	if err != nil || !found {
		return err
	}
	st.Recent = normalizeRecent(st.Recent)

	s.mu.Lock()
	s.state = st.clone()
	s.mu.Unlock()
	return nil
}

// Scanned returns the last scanned product
func (s *ProductStore) Scanned() (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Scanned == nil {
		return models.Product{}, false
	}
	return s.state.Scanned.Clone(), true
}

// Recent returns the recent products, most recent first
func (s *ProductStore) Recent() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone().Recent
}

// State returns a copy of the whole product state
func (s *ProductStore) State() ProductState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetScanned makes p the scanned product. When recordHistory is set, p is also
// moved to the front of the recent list.
func (s *ProductStore) SetScanned(ctx context.Context, p models.Product, recordHistory bool) error {
	return s.mutate(ctx, func(st *ProductState) {
		scanned := p.Clone()
		st.Scanned = &scanned
		if recordHistory {
			st.Recent = normalizeRecent(append([]models.Product{p.Clone()}, st.Recent...))
		}
	})
}

// ClearScanned forgets the scanned product
func (s *ProductStore) ClearScanned(ctx context.Context) error {
	return s.mutate(ctx, func(st *ProductState) {
		st.Scanned = nil
	})
}

// ClearHistory empties the recent list
func (s *ProductStore) ClearHistory(ctx context.Context) error {
	return s.mutate(ctx, func(st *ProductState) {
		st.Recent = []models.Product{}
	})
}

// Subscribe registers fn to receive the new state after every successful
// mutation. The returned func unsubscribes.
func (s *ProductStore) Subscribe(fn func(ProductState)) func() {
	return s.subs.add(fn)
}

// mutate applies fn to a copy of the state and commits it once saved.
func (s *ProductStore) mutate(ctx context.Context, fn func(*ProductState)) error {
	s.mu.Lock()
	next := s.state.clone()
	fn(&next)
	if err := saveJSON(ctx, s.persister, ProductsKey, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	snapshot := next.clone()
	s.mu.Unlock()

	s.subs.notify(snapshot)
	return nil
}

// normalizeRecent drops later duplicates and truncates to HistoryLimit.
func normalizeRecent(in []models.Product) []models.Product {
	out := make([]models.Product, 0, min(len(in), HistoryLimit))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
		if len(out) == HistoryLimit {
			break
		}
	}
	return out
}
