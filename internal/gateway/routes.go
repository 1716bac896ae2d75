package gateway

import (
	"sort"
	"strings"

	"smartpos/internal/domain"
)

// Route binds a path prefix to its owning identity spaces and allow-set.
// Spaces is an ordered list: authentication tries each entry until one accepts
// the credential, and role resolution walks the list until a space grants,
// each space consulted at most once. An empty AllowedRoles means
// authentication only.
type Route struct {
	Prefix       string
	AllowedRoles []string
	Spaces       []domain.Space
}

func staffRoles() []string {
	out := make([]string, 0, len(domain.StaffRoles))
	for _, r := range domain.StaffRoles {
		out = append(out, string(r))
	}
	return out
}

// DefaultRoutes is the static route table. Selection is by path prefix, never
// by token content.
func DefaultRoutes() []Route {
	return []Route{
		{Prefix: "/user", Spaces: []domain.Space{domain.SpaceUser}},
		{Prefix: "/customer", Spaces: []domain.Space{domain.SpaceCustomer}},
		{
			// Catalog writes: staff management roles only.
			Prefix:       "/product/auth",
			AllowedRoles: []string{string(domain.RoleAdmin), string(domain.RoleManager)},
			Spaces:       []domain.Space{domain.SpaceUser},
		},
		{
			// Catalog reads are shared: staff or customers, staff space first.
			Prefix:       "/product/all",
			AllowedRoles: append(staffRoles(), string(domain.RoleCustomer)),
			Spaces:       []domain.Space{domain.SpaceUser, domain.SpaceCustomer},
		},
		{
			Prefix:       "/cart",
			AllowedRoles: []string{string(domain.RoleCustomer)},
			Spaces:       []domain.Space{domain.SpaceCustomer},
		},
		{
			// Bills are owned by customers but payable at a staffed register.
			Prefix: "/bill",
			AllowedRoles: []string{
				string(domain.RoleCustomer),
				string(domain.RoleCashier),
				string(domain.RoleAdmin),
			},
			Spaces: []domain.Space{domain.SpaceCustomer, domain.SpaceUser},
		},
		{
			Prefix:       "/shopping-list",
			AllowedRoles: []string{string(domain.RoleCustomer)},
			Spaces:       []domain.Space{domain.SpaceCustomer},
		},
	}
}

// match returns the longest-prefix route for path, or nil.
func match(routes []Route, path string) *Route {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	for i := range sorted {
		if strings.HasPrefix(path, sorted[i].Prefix) {
			return &sorted[i]
		}
	}
	return nil
}
