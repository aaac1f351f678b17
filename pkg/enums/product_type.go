package enums

import "strings"

// ProductType selects the catalog domain a cart or order line belongs to.
type ProductType string

const (
	ProductTypeFashion ProductType = "fashion"
	ProductTypeDish    ProductType = "dish"
	ProductTypeGrocery ProductType = "grocery"
)

var validProductTypes = []ProductType{
	ProductTypeFashion,
	ProductTypeDish,
	ProductTypeGrocery,
}

func (p ProductType) String() string {
	return string(p)
}

func (p ProductType) IsValid() bool {
	return contains(validProductTypes, p)
}

// SingleVendorPerCart reports whether every line of this type in a cart must
// come from the same vendor.
func (p ProductType) SingleVendorPerCart() bool {
	return p == ProductTypeDish || p == ProductTypeGrocery
}

// TracksStock reports whether checkout deducts stock for this type.
func (p ProductType) TracksStock() bool {
	return p == ProductTypeFashion || p == ProductTypeGrocery
}

// ParseProductType converts raw input into a ProductType. "clothing" is
// accepted as an alias for fashion.
func ParseProductType(value string) (ProductType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "clothing" {
		return ProductTypeFashion, nil
	}
	return parse(validProductTypes, normalized, "product type")
}
