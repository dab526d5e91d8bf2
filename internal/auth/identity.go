package auth

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the caller's resolved identity and role, derived once by the
// auth middleware and passed into services instead of re-reading tokens.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Anonymous marks requests that carried no credentials. Checkout allows it;
// gated content does not.
var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}
