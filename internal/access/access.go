// Package access holds the authorization decisions made by the service
// layer. Every function is a pure predicate over the actor and the target.
package access

// Role is the privilege level of a credential.
type Role string

const (
	RoleRegular Role = "Regular"
	RoleAdmin   Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleRegular || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// CanMutatePerson reports whether the actor owns the person record and may
// therefore update or delete it. Role plays no part in this decision.
func CanMutatePerson(actorCredentialID, ownerCredentialID string) bool {
	return actorCredentialID != "" && actorCredentialID == ownerCredentialID
}

// CanUpdateCredential reports whether the actor may change the username or
// password of the target credential. Only the owner can.
func CanUpdateCredential(actorID, targetID string) bool {
	return actorID != "" && actorID == targetID
}

// CanDeleteUser reports whether the actor may delete the target account.
// Only admins can delete accounts, and never their own.
func CanDeleteUser(actorRole Role, actorID, targetID string) bool {
	return actorRole == RoleAdmin && actorID != targetID
}

// CanManageAllUsers reports whether the actor may list and inspect every account.
func CanManageAllUsers(actorRole Role) bool {
	return actorRole == RoleAdmin
}
