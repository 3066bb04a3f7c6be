package picking

import (
	"encoding/json"
	"strconv"
	"strings"
)

// DefaultPalletQuantity is the split chunk used when a delivery item names none.
const DefaultPalletQuantity = 40

// Tab names the candidate list shown on the picking screen.
type Tab string

const (
	TabAvailableStocks Tab = "available_stocks"
	TabOtherStocks     Tab = "other_stocks"
)

// DeliveryItem is the delivery line being picked.
type DeliveryItem struct {
	DeliveryDocument      string `json:"delivery_document"`
	ItemNumber            string `json:"item_number"`
	MaterialCode          string `json:"material_code"`
	DeliveryQuantity      string `json:"delivery_quantity"`
	SalesUnit             string `json:"sales_unit"`
	StorageLocation       string `json:"storage_location"`
	Plant                 string `json:"plant"`
	DefaultPalletQuantity int    `json:"default_pallet_quantity,omitempty"`
}

// requiredQuantity reads the delivery quantity the way a lenient form field would:
// leading digits only, anything unreadable is zero.
func (d DeliveryItem) requiredQuantity() int {
	s := strings.TrimSpace(d.DeliveryQuantity)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

func (d DeliveryItem) palletQuantity() int {
	if d.DefaultPalletQuantity > 0 {
		return d.DefaultPalletQuantity
	}
	return DefaultPalletQuantity
}

// AgeRange is the accepted product age window of a delivery item. The bounds are passed
// back to the commodity lookups verbatim.
type AgeRange struct {
	From json.RawMessage `json:"from"`
	To   json.RawMessage `json:"to"`
}

// Stock is one stock candidate. Fields keeps the full server record; Selected and
// SplitQty are lifted out of it.
type Stock struct {
	Fields   map[string]any
	Selected bool
	SplitQty int
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Stock) UnmarshalJSON(data []byte) error {
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	s.Fields = fields
	s.Selected = truthy(fields["is_selected"])
	return nil
}

// MarshalJSON writes the server record with split_qty set.
func (s Stock) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+1)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["split_qty"] = s.SplitQty
	return json.Marshal(out)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != "" && x != "0" && x != "false"
	default:
		return false
	}
}

// AllocationRule selects how [AllocateWith] consumes the required quantity.
type AllocationRule uint8

const (
	// RepeatRemainder subtracts whole pallets only. Once less than a pallet remains, every
	// later selected stock is offered that remainder again. It is the default.
	RepeatRemainder AllocationRule = iota
	// DrainRemainder subtracts every allocation, so selected stocks past the required
	// quantity get zero.
	DrainRemainder
)

func (r AllocationRule) String() string {
	if r == DrainRemainder {
		return "drain"
	}
	return "repeat"
}

// Allocate is [AllocateWith] under [RepeatRemainder].
func Allocate(stocks []Stock, required, pallet int) []Stock {
	return AllocateWith(RepeatRemainder, stocks, required, pallet)
}

// AllocateWith assigns split quantities to the selected stocks in list order: each gets a
// pallet-sized chunk, or the remainder when that is smaller. Unselected stocks get zero.
func AllocateWith(rule AllocationRule, stocks []Stock, required, pallet int) []Stock {
	if pallet <= 0 {
		pallet = DefaultPalletQuantity
	}
	remaining := max(required, 0)
	out := make([]Stock, len(stocks))
	for i, st := range stocks {
		st.SplitQty = 0
		if st.Selected {
			st.SplitQty = min(remaining, pallet)
			if rule == DrainRemainder || remaining >= pallet {
				remaining -= st.SplitQty
			}
		}
		out[i] = st
	}
	return out
}

// DeliveryDetails is the header record of the delivery being picked.
type DeliveryDetails struct {
	Header       map[string]any
	OpenQuantity json.RawMessage
}

func (d DeliveryDetails) clone() DeliveryDetails {
	out := DeliveryDetails{OpenQuantity: append(json.RawMessage(nil), d.OpenQuantity...)}
	if d.Header != nil {
		out.Header = make(map[string]any, len(d.Header))
		for k, v := range d.Header {
			out.Header[k] = v
		}
	}
	return out
}
