package domain

import "time"

// Space names one of the two disjoint principal populations. Staff accounts
// live in SpaceUser, shoppers in SpaceCustomer; a handle only identifies a
// principal within its own space.
type Space string

const (
	SpaceUser     Space = "user"
	SpaceCustomer Space = "customer"
)

// Role is the closed set of roles a principal may hold.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleCashier  Role = "CASHIER"
	RoleStaff    Role = "STAFF"
	RoleSecurity Role = "SECURITY"
	RoleSupplier Role = "SUPPLIER"
	RoleCustomer Role = "CUSTOMER"
)

// StaffRoles are the roles permitted to log in to the user space.
var StaffRoles = []Role{RoleAdmin, RoleManager, RoleCashier, RoleStaff, RoleSecurity, RoleSupplier}

// Principal is an account in one identity space.
type Principal struct {
	ID           string    `json:"id"`
	Space        Space     `json:"space"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	NIC          string    `json:"nic,omitempty"`
	PhoneNumber  string    `json:"phoneNumber,omitempty"`
	Role         Role      `json:"role"`
	RegisteredBy string    `json:"registeredBy,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
}
