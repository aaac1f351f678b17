package enums

// ItemStatus tracks fulfillment of a single order line.
type ItemStatus string

const (
	ItemStatusPending        ItemStatus = "pending"
	ItemStatusProcessing     ItemStatus = "processing"
	ItemStatusOutForDelivery ItemStatus = "out_for_delivery"
	ItemStatusShipped        ItemStatus = "shipped"
	ItemStatusDelivered      ItemStatus = "delivered"
	ItemStatusCancelled      ItemStatus = "cancelled"
	ItemStatusReturn         ItemStatus = "return"
)

var validItemStatuses = []ItemStatus{
	ItemStatusPending,
	ItemStatusProcessing,
	ItemStatusOutForDelivery,
	ItemStatusShipped,
	ItemStatusDelivered,
	ItemStatusCancelled,
	ItemStatusReturn,
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusPending:        {ItemStatusProcessing, ItemStatusCancelled},
	ItemStatusProcessing:     {ItemStatusOutForDelivery, ItemStatusShipped, ItemStatusCancelled},
	ItemStatusShipped:        {ItemStatusOutForDelivery, ItemStatusDelivered, ItemStatusCancelled},
	ItemStatusOutForDelivery: {ItemStatusDelivered, ItemStatusCancelled},
	ItemStatusDelivered:      {ItemStatusReturn},
}

func (s ItemStatus) String() string {
	return string(s)
}

func (s ItemStatus) IsValid() bool {
	return contains(validItemStatuses, s)
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	return contains(itemTransitions[s], next)
}

// IsTerminal reports whether no further transition is allowed.
func (s ItemStatus) IsTerminal() bool {
	return len(itemTransitions[s]) == 0
}

func ParseItemStatus(value string) (ItemStatus, error) {
	return parse(validItemStatuses, value, "item status")
}
