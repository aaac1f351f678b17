package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	cartsvc "github.com/angelmondragon/fastbag-backend/internal/cart"
	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

type addLineRequest struct {
	ProductType string `json:"product_type" validate:"required"`
	ProductID   string `json:"product_id" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	Variant     string `json:"variant"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// Line is a cart line as returned to the customer.
type Line struct {
	ID          uuid.UUID         `json:"id"`
	VendorID    uuid.UUID         `json:"vendor_id"`
	ProductType enums.ProductType `json:"product_type"`
	ProductID   uuid.UUID         `json:"product_id"`
	ProductName string            `json:"product_name"`
	ImageURL    *string           `json:"image_url,omitempty"`
	Color       string            `json:"color,omitempty"`
	Size        string            `json:"size,omitempty"`
	Variant     string            `json:"variant,omitempty"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Summary is a set of lines with their totals.
type Summary struct {
	Lines     []Line          `json:"lines"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Bundle is the cart slice of one vendor.
type Bundle struct {
	VendorID   uuid.UUID       `json:"vendor_id"`
	VendorName string          `json:"vendor_name"`
	ItemCount  int             `json:"item_count"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Lines      []Line          `json:"lines"`
}

func newLine(l models.CartLine) Line {
	return Line{
		ID:          l.ID,
		VendorID:    l.VendorID,
		ProductType: l.ProductType,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		ImageURL:    l.ImageURL,
		Color:       l.Color,
		Size:        l.Size,
		Variant:     l.Variant,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Subtotal:    l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
		UpdatedAt:   l.UpdatedAt,
	}
}

func newSummary(lines []models.CartLine) Summary {
	out := Summary{Lines: make([]Line, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		line := newLine(l)
		out.Lines = append(out.Lines, line)
		out.ItemCount += line.Quantity
		out.Subtotal = out.Subtotal.Add(line.Subtotal)
	}
	return out
}

func newBundles(bundles []cartsvc.VendorBundle) []Bundle {
	out := make([]Bundle, 0, len(bundles))
	for _, b := range bundles {
		lines := make([]Line, 0, len(b.Lines))
		for _, l := range b.Lines {
			lines = append(lines, newLine(l))
		}
		out = append(out, Bundle{
			VendorID:   b.VendorID,
			VendorName: b.VendorName,
			ItemCount:  b.ItemCount,
			Subtotal:   b.Subtotal,
			Lines:      lines,
		})
	}
	return out
}
