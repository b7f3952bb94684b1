package enums

import "fmt"

// StaffRole scopes what an authenticated back-office caller may do.
type StaffRole string

const (
	// StaffRoleAdmin manages the catalog, promos, orders, and reports.
	StaffRoleAdmin StaffRole = "admin"
	// StaffRoleFulfillment can read orders and move them through fulfilment.
	StaffRoleFulfillment StaffRole = "fulfillment"
)

var validStaffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleFulfillment,
}

// String implements fmt.Stringer.
func (r StaffRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StaffRole.
func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Allows reports whether a caller holding r satisfies a route requiring want.
func (r StaffRole) Allows(want StaffRole) bool {
	if r == StaffRoleAdmin {
		return true
	}
	return r == want
}

// ParseStaffRole converts raw input into a StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
