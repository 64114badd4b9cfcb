package models

import "time"

// Account represents a registered user account.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose this to the client
	Role         Role      `json:"role"`
	IsDeleted    bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the account holds the admin role.
func (a Account) IsAdmin() bool {
	return a.Role.IsAdmin()
}
