package entity

// Role is the authorization role carried in access tokens.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

func (r Role) String() string { return string(r) }
