package picking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/MrEthical07/goGate/api"
	"github.com/MrEthical07/goGate/session"
)

const (
	pathAgeRange        = "deliveries/get-age-range"
	pathOpenQuantity    = "deliveries/get-open-quantity"
	pathAvailableStocks = "inventories/get-available-commodities-sap"
	pathOtherStocks     = "inventories/get-other-commodities-sap"
	pathHeaderDetails   = "batch-picking/get-details"
)

// Doer issues authenticated warehouse API calls. [*api.Client] implements it.
type Doer interface {
	Post(ctx context.Context, path string, body, out any) error
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Batch is one batch row as the server sends it.
type Batch map[string]any

// State is a snapshot of the picking screen.
type State struct {
	Batches         []Batch
	OriginalBatches []Batch
	Details         DeliveryDetails
	Age             AgeRange
	AvailableStocks []Stock
	OtherStocks     []Stock
	SelectedItem    *DeliveryItem
	ActiveTab       Tab
	Errors          session.FieldErrors

	LoadingAvailableStocks bool
	LoadingOtherStocks     bool
	LoadingHeaderDetails   bool
}

// Store defines a public type used by goGate APIs.
//
// Store is safe for concurrent use. Overlapping fetches race and the last to resolve wins.
type Store struct {
	client Doer
	logger *slog.Logger
	rule   AllocationRule

	mu    sync.Mutex
	state State
}

// New returns an empty store on the available-stocks tab.
func New(client Doer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		client: client,
		logger: logger,
		state:  State{ActiveTab: TabAvailableStocks, Errors: session.FieldErrors{}},
	}
}

// SetAllocationRule changes how later stock fetches split the delivery quantity.
func (s *Store) SetAllocationRule(rule AllocationRule) {
	s.mu.Lock()
	s.rule = rule
	s.mu.Unlock()
}

// SetBatches replaces the displayed batch list.
func (s *Store) SetBatches(batches []Batch) {
	s.mu.Lock()
	s.state.Batches = append([]Batch(nil), batches...)
	s.mu.Unlock()
}

// SetOriginalBatchList stores the unfiltered batch list and displays it.
func (s *Store) SetOriginalBatchList(batches []Batch) {
	s.mu.Lock()
	s.state.OriginalBatches = append([]Batch(nil), batches...)
	s.state.Batches = append([]Batch(nil), batches...)
	s.mu.Unlock()
}

// SelectItem sets the delivery item being picked.
func (s *Store) SelectItem(item *DeliveryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item == nil {
		s.state.SelectedItem = nil
		return
	}
	cp := *item
	s.state.SelectedItem = &cp
}

// SetActiveTab switches the candidate list.
func (s *Store) SetActiveTab(tab Tab) {
	s.mu.Lock()
	s.state.ActiveTab = tab
	s.mu.Unlock()
}

// CheckAgeRange loads the product age window of item and stores it.
func (s *Store) CheckAgeRange(ctx context.Context, item DeliveryItem) (AgeRange, error) {
	body := map[string]string{
		"delivery_item_no":  item.ItemNumber,
		"material_code":     item.MaterialCode,
		"delivery_document": item.DeliveryDocument,
	}
	var out AgeRange
	if err := s.client.Post(ctx, pathAgeRange, body, &out); err != nil {
		s.recordErrors(err)
		return AgeRange{}, err
	}

	s.mu.Lock()
	s.state.Age = out
	s.mu.Unlock()
	return out, nil
}

// FetchOpenQuantity loads the quantity still open on item and stores it on the delivery
// details. Errors are returned but not recorded.
func (s *Store) FetchOpenQuantity(ctx context.Context, item DeliveryItem) (json.RawMessage, error) {
	body := map[string]string{
		"delivery_document":    item.DeliveryDocument,
		"delivery_item_number": item.ItemNumber,
		"delivery_quantity":    item.DeliveryQuantity,
		"sloc":                 item.StorageLocation,
		"plant_code":           item.Plant,
	}
	var out json.RawMessage
	if err := s.client.Post(ctx, pathOpenQuantity, body, &out); err != nil {
		s.logger.Warn("fetch open quantity", "delivery", item.DeliveryDocument, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.state.Details.OpenQuantity = out
	s.mu.Unlock()
	return out, nil
}

// FetchAvailableCommodities loads the stocks matching item within the stored age range and
// allocates the delivery quantity across the selected ones.
func (s *Store) FetchAvailableCommodities(ctx context.Context, item DeliveryItem) ([]Stock, error) {
	return s.fetchStocks(ctx, pathAvailableStocks, item, &s.state.AvailableStocks, &s.state.LoadingAvailableStocks)
}

// FetchOtherAvailableCommodities is [Store.FetchAvailableCommodities] for stocks outside
// the preferred storage.
func (s *Store) FetchOtherAvailableCommodities(ctx context.Context, item DeliveryItem) ([]Stock, error) {
	return s.fetchStocks(ctx, pathOtherStocks, item, &s.state.OtherStocks, &s.state.LoadingOtherStocks)
}

// fetchStocks must be given dst and loading pointing into s.state; both are written under s.mu.
func (s *Store) fetchStocks(ctx context.Context, path string, item DeliveryItem, dst *[]Stock, loading *bool) ([]Stock, error) {
	s.mu.Lock()
	*loading = true
	age := s.state.Age
	s.mu.Unlock()

	body := struct {
		MaterialCode     string          `json:"material_code"`
		DeliveryDocument string          `json:"delivery_document"`
		ItemNumber       string          `json:"item_number"`
		DeliveryQuantity string          `json:"delivery_quantity"`
		SalesUnit        string          `json:"sales_unit"`
		From             json.RawMessage `json:"from"`
		To               json.RawMessage `json:"to"`
		Sloc             string          `json:"sloc"`
		PlantCode        string          `json:"plant_code"`
	}{
		MaterialCode:     item.MaterialCode,
		DeliveryDocument: item.DeliveryDocument,
		ItemNumber:       item.ItemNumber,
		DeliveryQuantity: item.DeliveryQuantity,
		SalesUnit:        item.SalesUnit,
		From:             nullIfEmpty(age.From),
		To:               nullIfEmpty(age.To),
		Sloc:             item.StorageLocation,
		PlantCode:        item.Plant,
	}

	var raw []Stock
	err := s.client.Post(ctx, path, body, &raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	*loading = false
	if err != nil {
		s.recordErrorsLocked(err)
		return nil, err
	}
	*dst = AllocateWith(s.rule, raw, item.requiredQuantity(), item.palletQuantity())
	return cloneStocks(*dst), nil
}

// FetchHeaderDetails loads the delivery header. A response with success=false keeps the
// previous header.
func (s *Store) FetchHeaderDetails(ctx context.Context, query url.Values) error {
	s.mu.Lock()
	s.state.LoadingHeaderDetails = true
	s.mu.Unlock()

	var out struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	err := s.client.Get(ctx, pathHeaderDetails, query, &out)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingHeaderDetails = false
	if err != nil {
		s.logger.Warn("fetch header details", "error", err)
		return err
	}
	if !out.Success {
		s.logger.Warn("header details reported failure")
		return nil
	}
	s.state.Details.Header = out.Data
	return nil
}

// State returns a snapshot of the store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Batches = append([]Batch(nil), s.state.Batches...)
	st.OriginalBatches = append([]Batch(nil), s.state.OriginalBatches...)
	st.Details = s.state.Details.clone()
	st.AvailableStocks = cloneStocks(s.state.AvailableStocks)
	st.OtherStocks = cloneStocks(s.state.OtherStocks)
	st.Errors = s.state.Errors.Clone()
	if s.state.SelectedItem != nil {
		item := *s.state.SelectedItem
		st.SelectedItem = &item
	}
	return st
}

// Errors returns the field errors of the last failed call.
func (s *Store) Errors() session.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Errors.Clone()
}

func (s *Store) recordErrors(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordErrorsLocked(err)
}

// only server responses carry field errors; transport failures leave them as they are
func (s *Store) recordErrorsLocked(err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		s.state.Errors = apiErr.Errors.Clone()
	}
	s.logger.Warn("picking request failed", "error", err)
}

func cloneStocks(in []Stock) []Stock {
	if in == nil {
		return nil
	}
	out := make([]Stock, len(in))
	copy(out, in)
	return out
}

func nullIfEmpty(v json.RawMessage) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return v
}
