package model

import "time"

// User is the identity record. PasswordHash and RefreshToken never leave the
// server; RefreshToken is empty when no refresh token is active.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	UserName     string    `json:"userName" bson:"userName"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	Avatar       string    `json:"avatar,omitempty" bson:"avatar,omitempty"`
	PasswordHash string    `json:"-" bson:"password,omitempty"`
	RefreshToken string    `json:"-" bson:"refreshToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Sanitized returns a copy without authentication material.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = ""
	return &c
}

// PublicProfile is what other callers may see of a user.
type PublicProfile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	UserName  string     `json:"userName"`
	Avatar    string     `json:"avatar,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (u *User) Public(includePrivate bool) *PublicProfile {
	p := &PublicProfile{
		ID:       u.ID,
		Name:     u.Name,
		UserName: u.UserName,
		Avatar:   u.Avatar,
	}
	if includePrivate {
		created := u.CreatedAt
		p.Email = u.Email
		p.CreatedAt = &created
	}
	return p
}
