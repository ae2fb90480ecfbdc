package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Role is the portal a user belongs to.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleDealer     Role = "dealer"
	RoleCustomer   Role = "customer"
	RoleDefault    Role = "user" // Used when the backend sends no role
)

// UserID accepts numeric and string ids from the backend and writes each
// back the way it arrived, so the cached profile keeps its original shape.
type UserID struct {
	value   string
	numeric bool
}

// StringID is an id the backend sends as a JSON string.
func StringID(s string) UserID {
	return UserID{value: s}
}

// NumericID is an id the backend sends as a JSON number.
func NumericID(n int64) UserID {
	return UserID{value: strconv.FormatInt(n, 10), numeric: true}
}

// ParseUserID restores an id that travelled as text, such as a token
// subject. Canonical base-10 integers become numeric ids.
func ParseUserID(s string) UserID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return NumericID(n)
	}
	return StringID(s)
}

func (id UserID) String() string {
	return id.value
}

func (id UserID) IsNumeric() bool {
	return id.numeric
}

func (id UserID) IsZero() bool {
	return id.value == ""
}

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = UserID{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	*id = UserID{value: n.String(), numeric: true}
	return nil
}

func (id UserID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// User is the profile snapshot cached in the user cookie. It mirrors the
// backend's /auth/me shape but is never authoritative.
type User struct {
	ID                 UserID          `json:"id"`
	Email              string          `json:"email"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	Phone              string          `json:"phone,omitempty"`
	Role               Role            `json:"role"`
	Permissions        []string        `json:"permissions"`
	Avatar             *string         `json:"avatar"`
	Details            json.RawMessage `json:"details,omitempty"` // Dealer business info or customer info
	MustChangePassword bool            `json:"mustChangePassword,omitempty"`
}

// RoleOrDefault returns the user's role, or RoleDefault when none was sent.
func (u *User) RoleOrDefault() Role {
	if u == nil || u.Role == "" {
		return RoleDefault
	}
	return u.Role
}

// HasPermission is advisory only; the backend enforces authorization.
func (u *User) HasPermission(permission string) bool {
	return u != nil && slices.Contains(u.Permissions, permission)
}

// DisplayName prefers the full name and falls back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if fullName := strings.TrimSpace(u.FirstName + " " + u.LastName); fullName != "" {
		return fullName
	}
	return u.Email
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
