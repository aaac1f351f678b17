package errors

// Reason is the machine-readable cause attached to a business rule rejection.
type Reason string

const (
	ReasonCartEmpty             Reason = "cart_empty"
	ReasonVendorMismatchInCart  Reason = "vendor_mismatch_in_cart"
	ReasonInsufficientStock     Reason = "insufficient_stock"
	ReasonVariantUnavailable    Reason = "variant_unavailable"
	ReasonCouponInvalid         Reason = "coupon_invalid"
	ReasonCouponExpired         Reason = "coupon_expired"
	ReasonCouponVendorMismatch  Reason = "coupon_vendor_mismatch"
	ReasonCouponMinOrder        Reason = "coupon_min_order"
	ReasonCouponUsageExhausted  Reason = "coupon_usage_exhausted"
	ReasonCouponNewCustomerOnly Reason = "coupon_new_customer_only"
	ReasonAlreadyCancelled      Reason = "already_cancelled"
	ReasonInvalidTransition     Reason = "invalid_transition"
	ReasonNotDelivered          Reason = "not_delivered"
	ReasonAlreadyTaken          Reason = "already_taken"
	ReasonNotAssigned           Reason = "not_assigned"
	ReasonAlreadyAccepted       Reason = "already_accepted"
	ReasonSignatureMismatch     Reason = "signature_mismatch"
	ReasonInvalidPin            Reason = "invalid_pin"
)

// Reject builds a 400-class business rule rejection carrying a reason code.
func Reject(reason Reason, message string) *Error {
	return New(CodeRejected, message).WithDetails(map[string]any{"reason": string(reason)})
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) Reason {
	typed := As(err)
	if typed == nil || typed.Code() != CodeRejected {
		return ""
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return ""
	}
	raw, _ := details["reason"].(string)
	return Reason(raw)
}

// IsRejected reports whether err is a rejection with the given reason.
func IsRejected(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}
