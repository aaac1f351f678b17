package models

// All lists every mapped model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Vendor{},
		&DeliveryBoy{},
		&FashionProduct{},
		&FashionColor{},
		&FashionSize{},
		&Dish{},
		&GroceryProduct{},
		&CartLine{},
		&Coupon{},
		&Checkout{},
		&CheckoutItem{},
		&CouponUsage{},
		&Order{},
		&OrderItem{},
		&OrderAssign{},
		&DeliveryNotification{},
		&VendorCommission{},
		&CommissionSettlement{},
		&DeliveryChargeRule{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
