package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// WeightOption is one purchasable weight of a grocery product.
type WeightOption struct {
	Label      string           `json:"weight"`
	Price      decimal.Decimal  `json:"price"`
	OfferPrice *decimal.Decimal `json:"offer_price,omitempty"`
	Quantity   *int             `json:"quantity,omitempty"`
	IsInStock  *bool            `json:"is_in_stock,omitempty"`
}

// EffectivePrice returns the offer price when one is set.
func (w WeightOption) EffectivePrice() decimal.Decimal {
	if w.OfferPrice != nil && w.OfferPrice.IsPositive() {
		return *w.OfferPrice
	}
	return w.Price
}

// WeightTable holds grocery weight options. Stored rows come in two shapes:
// an object keyed by weight label or a list of objects carrying the label.
// Both decode into ordered entries and encode back in the shape they were read.
type WeightTable struct {
	Options []WeightOption
	keyed   bool
}

// NewKeyedWeightTable builds a table that serializes as an object.
func NewKeyedWeightTable(options ...WeightOption) WeightTable {
	return WeightTable{Options: options, keyed: true}
}

// NewListWeightTable builds a table that serializes as a list.
func NewListWeightTable(options ...WeightOption) WeightTable {
	return WeightTable{Options: options}
}

// Keyed reports whether the table was read from the object form.
func (t WeightTable) Keyed() bool {
	return t.keyed
}

// Find returns the option whose label matches, ignoring case and spacing.
func (t *WeightTable) Find(label string) (*WeightOption, bool) {
	want := normalizeLabel(label)
	for i := range t.Options {
		if normalizeLabel(t.Options[i].Label) == want {
			return &t.Options[i], true
		}
	}
	return nil, false
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(label), " ", ""))
}

func (t WeightTable) MarshalJSON() ([]byte, error) {
	if !t.keyed {
		if t.Options == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(t.Options)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range t.Options {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(opt.Label)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(keyedOption{
			Price:      opt.Price,
			OfferPrice: opt.OfferPrice,
			Quantity:   opt.Quantity,
			IsInStock:  opt.IsInStock,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type keyedOption struct {
	Price      decimal.Decimal  `json:"price"`
	OfferPrice *decimal.Decimal `json:"offer_price,omitempty"`
	Quantity   *int             `json:"quantity,omitempty"`
	IsInStock  *bool            `json:"is_in_stock,omitempty"`
}

func (t *WeightTable) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = WeightTable{}
		return nil
	}

	switch trimmed[0] {
	case '[':
		var options []WeightOption
		if err := json.Unmarshal(trimmed, &options); err != nil {
			return fmt.Errorf("weight table: %w", err)
		}
		*t = WeightTable{Options: options}
		return nil
	case '{':
		var keyed map[string]keyedOption
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return fmt.Errorf("weight table: %w", err)
		}
		labels := make([]string, 0, len(keyed))
		for label := range keyed {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		options := make([]WeightOption, 0, len(labels))
		for _, label := range labels {
			opt := keyed[label]
			options = append(options, WeightOption{
				Label:      label,
				Price:      opt.Price,
				OfferPrice: opt.OfferPrice,
				Quantity:   opt.Quantity,
				IsInStock:  opt.IsInStock,
			})
		}
		*t = WeightTable{Options: options, keyed: true}
		return nil
	default:
		return fmt.Errorf("weight table: unexpected json %q", trimmed[0])
	}
}

// Value implements driver.Valuer.
func (t WeightTable) Value() (driver.Value, error) {
	raw, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (t *WeightTable) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = WeightTable{}
		return nil
	case []byte:
		return t.UnmarshalJSON(v)
	case string:
		return t.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("weight table: unsupported scan type %T", value)
	}
}
