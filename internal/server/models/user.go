package models

import (
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
)

// User is a stored credential. PasswordHash and PasswordSalt never leave
// the server.
type User struct {
	ID             string
	UserName       string
	PasswordHash   []byte
	PasswordSalt   []byte
	PasswordScheme string
	Role           access.Role
	CreatedAt      time.Time
}

// UserView is the public projection of a User.
type UserView struct {
	ID       string      `json:"id"`
	UserName string      `json:"username"`
	Role     access.Role `json:"role"`
}

func (u *User) View() UserView {
	return UserView{ID: u.ID, UserName: u.UserName, Role: u.Role}
}
