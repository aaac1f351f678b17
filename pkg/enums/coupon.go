package enums

// DiscountType selects how a coupon's discount_value is applied.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{DiscountTypePercentage, DiscountTypeFixed}

func (d DiscountType) IsValid() bool {
	return contains(validDiscountTypes, d)
}

func ParseDiscountType(value string) (DiscountType, error) {
	return parse(validDiscountTypes, value, "discount type")
}
