package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public drops everything that must not leave the server.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
