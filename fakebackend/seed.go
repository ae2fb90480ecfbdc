package fakebackend

import (
	"encoding/json"

	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/users"
)

// DemoAccount is a seeded login.
type DemoAccount struct {
	Email    string
	Password string
	Role     users.Role
	Tenant   string
}

// DemoAccounts are created by SeedDemoAccounts. The customer must change
// their password on first sign-in.
var DemoAccounts = []DemoAccount{
	{Email: "admin@portal.test", Password: "Admin12345", Role: users.RoleSuperAdmin},
	{Email: "dealer@acme.test", Password: "Dealer12345", Role: users.RoleDealer, Tenant: "acme"},
	{Email: "customer@acme.test", Password: "Customer12345", Role: users.RoleCustomer, Tenant: "acme"},
}

var rolePermissions = map[users.Role][]string{
	users.RoleSuperAdmin: {"dealers:write", "customers:write", "warranties:write", "packages:write"},
	users.RoleDealer:     {"customers:write", "vehicles:write", "warranties:sell"},
	users.RoleCustomer:   {"warranties:read", "documents:read"},
}

// SeedDemoAccounts loads DemoAccounts with numeric ids, the way the real
// backend issues them.
func (b *Backend) SeedDemoAccounts() error {
	details := map[users.Role]any{
		users.RoleDealer:   map[string]any{"businessName": "Acme Motors", "city": "Leeds", "country": "GB"},
		users.RoleCustomer: map[string]any{"vehicles": []string{"WVWZZZ1JZXW000001"}},
	}

	for i, demo := range DemoAccounts {
		profile := users.User{
			ID:                 users.NumericID(int64(i + 1)),
			Email:              demo.Email,
			FirstName:          firstNames[demo.Role],
			LastName:           "Demo",
			Role:               demo.Role,
			Permissions:        rolePermissions[demo.Role],
			MustChangePassword: demo.Role == users.RoleCustomer,
		}
		if d, ok := details[demo.Role]; ok {
			raw, err := json.Marshal(d)
			if err != nil {
				return errors.Wrapf(err, "[SeedDemoAccounts] details for %s", demo.Email)
			}
			profile.Details = raw
		}
		if _, err := b.accounts.Create(profile, demo.Password, demo.Tenant); err != nil {
			return errors.Wrapf(err, "[SeedDemoAccounts] %s", demo.Email)
		}
	}
	return nil
}

var firstNames = map[users.Role]string{
	users.RoleSuperAdmin: "Ada",
	users.RoleDealer:     "Dan",
	users.RoleCustomer:   "Cora",
}
