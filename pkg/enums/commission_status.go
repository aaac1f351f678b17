package enums

// CommissionStatus tracks whether a vendor commission has been collected.
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

var validCommissionStatuses = []CommissionStatus{CommissionStatusPending, CommissionStatusPaid}

func (c CommissionStatus) IsValid() bool {
	return contains(validCommissionStatuses, c)
}

func ParseCommissionStatus(value string) (CommissionStatus, error) {
	return parse(validCommissionStatuses, value, "commission status")
}
