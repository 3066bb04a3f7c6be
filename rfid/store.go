package rfid

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/session"
)

const (
	pathList     = "pallet-registration/get-list"
	pathLookupBy = "pallet-registration/get-by-tid"
)

// Poster issues authenticated warehouse API calls. [*api.Client] implements it.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Pallet is a registered pallet record as the server sends it.
type Pallet map[string]any

// Filter narrows the pallet lookups. Empty fields are sent as null.
type Filter struct {
	PlantCode       string
	PalletName      string
	StorageLocation string
}

func (f Filter) body() map[string]*string {
	return map[string]*string{
		"plant_code":       optional(f.PlantCode),
		"pallet_name":      optional(f.PalletName),
		"storage_location": optional(f.StorageLocation),
	}
}

// State is a snapshot of the store.
type State struct {
	Pallets []Pallet
	Pallet  Pallet
	Filter  Filter
	Loading bool
	Errors  session.FieldErrors
}

// Store is safe for concurrent use.
type Store struct {
	client Poster
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New returns an empty store.
func New(client Poster, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{client: client, logger: logger, state: State{Errors: session.FieldErrors{}}}
}

// SetFilter replaces the lookup filter.
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	s.state.Filter = f
	s.mu.Unlock()
}

// FetchPallets loads the pallets matching the filter.
func (s *Store) FetchPallets(ctx context.Context) {
	filter := s.begin()

	var out []Pallet
	err := s.client.Post(ctx, pathList, filter.body(), &out)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.failLocked("fetch pallets", err)
		return
	}
	s.state.Pallets = out
}

// GetPalletByTID loads the single pallet matching the filter.
func (s *Store) GetPalletByTID(ctx context.Context) {
	filter := s.begin()

	var out Pallet
	err := s.client.Post(ctx, pathLookupBy, filter.body(), &out)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.failLocked("get pallet by tid", err)
		return
	}
	s.state.Pallet = out
}

// CheckTagRegistration reports whether tag tid is registered to a pallet at plant.
func (s *Store) CheckTagRegistration(ctx context.Context, tid, plant string) bool {
	s.begin()

	var out map[string]any
	err := s.client.Post(ctx, pathLookupBy, map[string]string{"plant_code": plant, "tid": tid}, &out)

	s.mu.Lock()
	s.state.Loading = false
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("tag lookup failed; treating as unregistered", "tid", tid, "error", err)
		return false
	}
	return len(out) > 0
}

// State returns a snapshot of the store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Pallets = append([]Pallet(nil), s.state.Pallets...)
	st.Errors = s.state.Errors.Clone()
	return st
}

func (s *Store) begin() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	return s.state.Filter
}

func (s *Store) failLocked(op string, err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		s.state.Errors = apiErr.Errors.Clone()
	}
	s.logger.Warn(op, "error", err)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
