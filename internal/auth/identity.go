package auth

// Identity is the authenticated caller, resolved once per request and passed
// explicitly into service calls.
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// Anonymous reports whether the identity carries no user
func (id Identity) Anonymous() bool {
	return id.UserID == ""
}

// CanAccess reports whether the caller may read a resource owned by ownerID
func (id Identity) CanAccess(ownerID string) bool {
	return id.IsAdmin || (id.UserID != "" && id.UserID == ownerID)
}
