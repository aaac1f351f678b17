package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fastbag-backend/pkg/db/models"
	"github.com/angelmondragon/fastbag-backend/pkg/enums"
)

// itemStage orders forward item statuses. Returned items count as delivered.
var itemStage = map[enums.ItemStatus]int{
	enums.ItemStatusPending:        0,
	enums.ItemStatusProcessing:     1,
	enums.ItemStatusShipped:        2,
	enums.ItemStatusOutForDelivery: 3,
	enums.ItemStatusDelivered:      4,
	enums.ItemStatusReturn:         4,
}

var stageStatus = map[int]enums.OrderStatus{
	1: enums.OrderStatusProcessing,
	2: enums.OrderStatusShipped,
	3: enums.OrderStatusOutForDelivery,
	4: enums.OrderStatusDelivered,
}

// orderRank orders forward order statuses so a recalculation never moves an
// order backwards past what the delivery workflow already recorded.
var orderRank = map[enums.OrderStatus]int{
	enums.OrderStatusProcessing:     10,
	enums.OrderStatusAccepted:       11,
	enums.OrderStatusPicked:         12,
	enums.OrderStatusShipped:        20,
	enums.OrderStatusOutForDelivery: 30,
	enums.OrderStatusDelivered:      40,
}

// Totals is the outcome of recalculating an order from its items.
type Totals struct {
	OrderStatus   enums.OrderStatus
	PaymentStatus enums.PaymentStatus
	FinalAmount   decimal.Decimal
}

// Recalculate derives the aggregate order state from its items:
// every item cancelled gives cancelled, and any cancelled item gives
// partial_cancelled ahead of forward progress by the remaining items. The
// final amount is the sum of non-cancelled subtotals, and a paid order with
// cancelled items becomes partial_refunded pending the out-of-band refund.
// Orders the delivery workflow already completed keep their status.
func Recalculate(order models.Order, items []models.OrderItem) Totals {
	out := Totals{
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		FinalAmount:   decimal.Zero,
	}

	cancelled, returned := 0, 0
	minStage := -1
	for _, item := range items {
		if item.Status == enums.ItemStatusCancelled {
			cancelled++
			continue
		}
		out.FinalAmount = out.FinalAmount.Add(item.Subtotal)
		if item.Status == enums.ItemStatusReturn {
			returned++
		}
		stage := itemStage[item.Status]
		if minStage < 0 || stage < minStage {
			minStage = stage
		}
	}
	active := len(items) - cancelled
	completed := orderRank[order.OrderStatus] >= orderRank[enums.OrderStatusDelivered]

	switch {
	case len(items) > 0 && active == 0:
		out.OrderStatus = enums.OrderStatusCancelled
	case active > 0 && returned == active:
		out.OrderStatus = enums.OrderStatusReturn
	case cancelled > 0 && !completed:
		out.OrderStatus = enums.OrderStatusPartialCancelled
	case minStage > 0:
		if next := stageStatus[minStage]; orderRank[next] > orderRank[order.OrderStatus] {
			out.OrderStatus = next
		}
	}

	if cancelled > 0 && isPaid(order.PaymentStatus) {
		out.PaymentStatus = enums.PaymentStatusPartialRefunded
	}
	return out
}

func isPaid(status enums.PaymentStatus) bool {
	return status == enums.PaymentStatusPaid || status == enums.PaymentStatusPartialRefunded
}
