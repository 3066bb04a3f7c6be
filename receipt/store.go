package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrEthical07/goGate/storage"
)

// StateName is the record the filters are persisted under.
const StateName = "goodsReceipt"

// Location is a plant or storage location as the pickers return it; at least an id and
// a code or title.
type Location map[string]any

// Filters narrow the goods-receipt listings. Nil fields are unset.
type Filters struct {
	Plant           Location `json:"plant"`
	StorageLocation Location `json:"storageLocation"`
	PostingDate     *string  `json:"posting_date"`
	PalletStatus    *string  `json:"pallet_status"`
}

// clone copies the location maps so snapshots stay independent.
func (f Filters) clone() Filters {
	out := f
	out.Plant = cloneLocation(f.Plant)
	out.StorageLocation = cloneLocation(f.StorageLocation)
	if f.PostingDate != nil {
		v := *f.PostingDate
		out.PostingDate = &v
	}
	if f.PalletStatus != nil {
		v := *f.PalletStatus
		out.PalletStatus = &v
	}
	return out
}

func cloneLocation(l Location) Location {
	if l == nil {
		return nil
	}
	out := make(Location, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Update changes one filter field.
type Update func(*Filters)

// WithPlant sets the plant; nil clears it.
func WithPlant(p Location) Update {
	return func(f *Filters) { f.Plant = cloneLocation(p) }
}

// WithStorageLocation sets the storage location; nil clears it.
func WithStorageLocation(l Location) Update {
	return func(f *Filters) { f.StorageLocation = cloneLocation(l) }
}

// WithPostingDate sets the posting date; "" clears it.
func WithPostingDate(date string) Update {
	return func(f *Filters) { f.PostingDate = optional(date) }
}

// WithPalletStatus sets the pallet status; "" clears it.
func WithPalletStatus(status string) Update {
	return func(f *Filters) { f.PalletStatus = optional(status) }
}

// Store is safe for concurrent use.
type Store struct {
	states storage.StateStorage
	logger *slog.Logger

	mu      sync.Mutex
	filters Filters
}

// Open loads the persisted filters. A corrupt record is discarded and the store starts
// empty; a storage failure is returned.
func Open(ctx context.Context, states storage.StateStorage, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if states == nil {
		states = storage.NewMemory()
	}
	s := &Store{states: states, logger: logger}

	record, ok, err := states.LoadState(ctx, StateName)
	if err != nil {
		return nil, fmt.Errorf("receipt: load filters: %w", err)
	}
	if ok {
		var f Filters
		if err := json.Unmarshal(record, &f); err != nil {
			logger.Warn("discarding corrupt goods receipt filters", "error", err)
		} else {
			s.filters = f
		}
	}
	return s, nil
}

// Filters returns a copy of the current filters.
func (s *Store) Filters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.clone()
}

// SetFilters applies updates on top of the current filters and persists the result.
func (s *Store) SetFilters(ctx context.Context, updates ...Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.filters.clone()
	for _, u := range updates {
		u(&next)
	}
	return s.commitLocked(ctx, next)
}

// MergeJSON merges a partial JSON object into the filters: each key that is present
// replaces the whole current value, null included; absent keys are kept.
func (s *Store) MergeJSON(ctx context.Context, patch []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var present map[string]json.RawMessage
	if err := json.Unmarshal(patch, &present); err != nil {
		return fmt.Errorf("receipt: decode filters: %w", err)
	}
	var incoming Filters
	if err := json.Unmarshal(patch, &incoming); err != nil {
		return fmt.Errorf("receipt: decode filters: %w", err)
	}

	next := s.filters.clone()
	for key := range present {
		switch key {
		case "plant":
			next.Plant = incoming.Plant
		case "storageLocation":
			next.StorageLocation = incoming.StorageLocation
		case "posting_date":
			next.PostingDate = incoming.PostingDate
		case "pallet_status":
			next.PalletStatus = incoming.PalletStatus
		}
	}
	return s.commitLocked(ctx, next)
}

// ClearFilters resets every filter and persists the empty record.
func (s *Store) ClearFilters(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, Filters{})
}

func (s *Store) commitLocked(ctx context.Context, next Filters) error {
	record, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("receipt: encode filters: %w", err)
	}
	if err := s.states.SaveState(ctx, StateName, record); err != nil {
		s.logger.Warn("persisting goods receipt filters failed", "error", err)
		return fmt.Errorf("receipt: save filters: %w", err)
	}
	s.filters = next
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
