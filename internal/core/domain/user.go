package domain

import "time"

// Role determines which business areas an account can reach.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleConsumer Role = "CONSUMER"
	RoleMerchant Role = "MERCHANT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleConsumer, RoleMerchant:
		return true
	}
	return false
}

// User is a platform account: consumer, merchant storefront owner, or admin.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	StoreName    string    `json:"store_name,omitempty"`
	Headline     string    `json:"headline,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session is an issued opaque session token resolved back to its owner.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}
