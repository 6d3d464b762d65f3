package auth

import "time"

// Identity is the resolved principal attached to an authenticated request
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Account represents a platform account able to manage projects
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary returns the account's identity without credential material
func (a *Account) Summary() *Identity {
	return &Identity{
		UserID: a.ID,
		Email:  a.Email,
		Name:   a.Name,
	}
}
