package user

import (
	"github.com/google/uuid"
)

// User is the caller identity as far as bookings are concerned: who they are,
// where to email them, and whether they act as an admin. Profiles are managed elsewhere.
type User struct {
	id    uuid.UUID
	name  string
	email Email
	role  Role
}

func NewUser(id uuid.UUID, name string, email Email, role Role) *User {
	return &User{
		id:    id,
		name:  name,
		email: email,
		role:  role,
	}
}

func (u *User) ID() uuid.UUID { return u.id }
func (u *User) Name() string  { return u.name }
func (u *User) Email() Email  { return u.email }
func (u *User) Role() Role    { return u.role }
