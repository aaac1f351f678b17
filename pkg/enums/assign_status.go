package enums

// AssignStatus tracks one delivery candidate's side of an order offer.
type AssignStatus string

const (
	AssignStatusAssigned  AssignStatus = "ASSIGNED"
	AssignStatusAccepted  AssignStatus = "ACCEPTED"
	AssignStatusPicked    AssignStatus = "PICKED"
	AssignStatusOnTheWay  AssignStatus = "ON_THE_WAY"
	AssignStatusDelivered AssignStatus = "DELIVERED"
	AssignStatusReturned  AssignStatus = "RETURNED"
	AssignStatusRejected  AssignStatus = "REJECTED"
)

var validAssignStatuses = []AssignStatus{
	AssignStatusAssigned,
	AssignStatusAccepted,
	AssignStatusPicked,
	AssignStatusOnTheWay,
	AssignStatusDelivered,
	AssignStatusReturned,
	AssignStatusRejected,
}

// transitions reachable through the agent status update endpoint; accept and
// reject have their own operations.
var assignTransitions = map[AssignStatus][]AssignStatus{
	AssignStatusAccepted: {AssignStatusPicked, AssignStatusReturned},
	AssignStatusPicked:   {AssignStatusOnTheWay, AssignStatusDelivered, AssignStatusReturned},
	AssignStatusOnTheWay: {AssignStatusDelivered, AssignStatusReturned},
}

func (s AssignStatus) String() string {
	return string(s)
}

func (s AssignStatus) IsValid() bool {
	return contains(validAssignStatuses, s)
}

func (s AssignStatus) CanTransitionTo(next AssignStatus) bool {
	return contains(assignTransitions[s], next)
}

func ParseAssignStatus(value string) (AssignStatus, error) {
	return parse(validAssignStatuses, value, "assignment status")
}
