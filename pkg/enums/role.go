package enums

// Role is the principal kind carried in access tokens.
type Role string

const (
	RoleCustomer        Role = "customer"
	RoleVendor          Role = "vendor"
	RoleDeliveryPartner Role = "delivery_partner"
	RoleAdmin           Role = "admin"
)

var validRoles = []Role{RoleCustomer, RoleVendor, RoleDeliveryPartner, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return contains(validRoles, r)
}

func ParseRole(value string) (Role, error) {
	return parse(validRoles, value, "role")
}
