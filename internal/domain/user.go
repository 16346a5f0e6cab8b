package domain

import "strings"

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTutor || r == RoleAdmin
}

// ParseRole is case-insensitive; unknown values report false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

type User struct {
	ID        string  `db:"id"`
	Email     string  `db:"email"`
	FirstName string  `db:"first_name"`
	LastName  string  `db:"last_name"`
	Hash      string  `db:"password_hash"`
	Role      Role    `db:"role"`
	Verified  bool    `db:"verified"`
	Language  string  `db:"language"`
	CreatedAt string  `db:"created_at"`
	UpdatedAt *string `db:"updated_at"`
	DeletedAt *string `db:"deleted_at"`
}

// PublicUser is the only user shape that leaves the server.
type PublicUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
	Verified  bool   `json:"verified"`
	Language  string `json:"language"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Verified:  u.Verified,
		Language:  u.Language,
	}
}
