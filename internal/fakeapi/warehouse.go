package fakeapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/goGate/session"
)

// Fixtures is the warehouse data served to authenticated callers.
type Fixtures struct {
	AgeFrom      int
	AgeTo        int
	OpenQuantity int
	Stocks       []map[string]any
	OtherStocks  []map[string]any
	Header       map[string]any
	Pallets      []map[string]any
}

func (f Fixtures) withDefaults() Fixtures {
	if f.AgeTo == 0 {
		f.AgeFrom, f.AgeTo = 0, 180
	}
	if f.Stocks == nil {
		f.Stocks = []map[string]any{
			{"batch": "B-1001", "quantity": 40, "is_selected": true},
			{"batch": "B-1002", "quantity": 40, "is_selected": true},
			{"batch": "B-1003", "quantity": 25, "is_selected": false},
		}
	}
	if f.OtherStocks == nil {
		f.OtherStocks = []map[string]any{
			{"batch": "B-2001", "quantity": 40, "is_selected": true, "sloc": "OVERFLOW"},
		}
	}
	if f.Header == nil {
		f.Header = map[string]any{"customer": "ACME Foods", "route": "R-12"}
	}
	if f.Pallets == nil {
		f.Pallets = []map[string]any{
			{"id": 1, "pallet_name": "PAL-0001", "tid": "E2801160600002084F8B2C41", "plant_code": "1000", "storage_location": "0001"},
			{"id": 2, "pallet_name": "PAL-0002", "tid": "E2801160600002084F8B2C42", "plant_code": "1000", "storage_location": "0002"},
		}
	}
	return f
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	body := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.", nil)
		return nil, false
	}
	return body, true
}

// require fails the request with 422 when any field is missing or empty.
func require(w http.ResponseWriter, body map[string]any, fields ...string) bool {
	errs := session.FieldErrors{}
	for _, f := range fields {
		if v, ok := body[f]; !ok || v == nil || v == "" {
			errs[f] = []string{"The " + strings.ReplaceAll(f, "_", " ") + " field is required."}
		}
	}
	if len(errs) == 0 {
		return true
	}
	writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", errs)
	return false
}

func (s *Server) handleAgeRange(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok || !require(w, body, "material_code") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"from": s.fixtures.AgeFrom, "to": s.fixtures.AgeTo})
}

func (s *Server) handleOpenQuantity(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok || !require(w, body, "delivery_document") {
		return
	}
	writeJSON(w, http.StatusOK, s.fixtures.OpenQuantity)
}

func (s *Server) handleStocks(other bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := decodeBody(w, r)
		if !ok || !require(w, body, "material_code", "delivery_quantity") {
			return
		}
		if other {
			writeJSON(w, http.StatusOK, s.fixtures.OtherStocks)
			return
		}
		writeJSON(w, http.StatusOK, s.fixtures.Stocks)
	}
}

func (s *Server) handleHeaderDetails(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("delivery_document") == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "delivery_document is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": s.fixtures.Header})
}

func (s *Server) handlePalletList(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	out := []map[string]any{}
	for _, p := range s.fixtures.Pallets {
		if matches(p, body, "plant_code", "pallet_name", "storage_location") {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePalletByTID answers an empty object when nothing matches.
func (s *Server) handlePalletByTID(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok || !require(w, body, "plant_code") {
		return
	}
	for _, p := range s.fixtures.Pallets {
		if matches(p, body, "plant_code", "tid", "pallet_name", "storage_location") {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// matches compares the non-null filter fields of body against record.
func matches(record, body map[string]any, fields ...string) bool {
	for _, f := range fields {
		want, ok := body[f]
		if !ok || want == nil || want == "" {
			continue
		}
		if got, _ := record[f].(string); got != want {
			return false
		}
	}
	return true
}
