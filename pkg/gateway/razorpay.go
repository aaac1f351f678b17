// Package gateway creates remote payment orders with the configured provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fastbag-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/fastbag-backend/pkg/errors"
)

// OrderCreator is the slice of the provider SDK used to open remote orders.
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RemoteOrderInput describes the amount to collect for one checkout.
type RemoteOrderInput struct {
	Receipt string
	Amount  decimal.Decimal
	Notes   map[string]string
}

// RemoteOrder is the provider-side order handed back to the client app.
type RemoteOrder struct {
	Ref         string `json:"gateway_order_ref"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
}

// Client opens remote orders. The shared secret is used separately for signature checks.
type Client struct {
	orders   OrderCreator
	keyID    string
	currency string
}

func NewClient(cfg config.PaymentConfig) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("payment key id and secret are required")
	}
	rz := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return NewClientWithCreator(rz.Order, cfg.KeyID, cfg.Currency), nil
}

// NewClientWithCreator wires a custom creator, used by tests.
func NewClientWithCreator(orders OrderCreator, keyID, currency string) *Client {
	if currency == "" {
		currency = "INR"
	}
	return &Client{orders: orders, keyID: keyID, currency: currency}
}

// CreateRemoteOrder registers the amount with the provider. Amounts are sent in minor units.
func (c *Client) CreateRemoteOrder(ctx context.Context, input RemoteOrderInput) (*RemoteOrder, error) {
	if c == nil || c.orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	minor := ToMinorUnits(input.Amount)
	if minor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	data := map[string]interface{}{
		"amount":   minor,
		"currency": c.currency,
		"receipt":  input.Receipt,
	}
	if len(input.Notes) > 0 {
		notes := make(map[string]interface{}, len(input.Notes))
		for k, v := range input.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	resp, err := c.orders.Create(data, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create remote order")
	}
	ref, _ := resp["id"].(string)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("remote order response missing id: %v", resp))
	}
	return &RemoteOrder{
		Ref:         ref,
		AmountMinor: minor,
		Currency:    c.currency,
		KeyID:       c.keyID,
	}, nil
}

// ToMinorUnits converts a rupee amount to paise.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
