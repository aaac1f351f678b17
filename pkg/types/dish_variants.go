package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DishVariant is a named portion of a dish, e.g. "Half" or "Full".
type DishVariant struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// DishVariants is stored as a JSON list.
type DishVariants []DishVariant

// Find matches a variant by name, case-insensitively.
func (v DishVariants) Find(name string) (DishVariant, bool) {
	want := strings.TrimSpace(name)
	for _, variant := range v {
		if strings.EqualFold(strings.TrimSpace(variant.Name), want) {
			return variant, true
		}
	}
	return DishVariant{}, false
}

func (v DishVariants) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]DishVariant(v))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (v *DishVariants) Scan(value interface{}) error {
	var raw []byte
	switch val := value.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		return fmt.Errorf("dish variants: unsupported scan type %T", value)
	}
	var out []DishVariant
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("dish variants: %w", err)
	}
	*v = out
	return nil
}
