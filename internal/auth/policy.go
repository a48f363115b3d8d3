package auth

// Action names an operation on user records that the policy rules over.
type Action string

const (
	ActionListIdentities Action = "users:list"
	ActionReadIdentity   Action = "users:read"
	ActionCreateIdentity Action = "users:create"
	ActionAssignRole     Action = "users:assign-role"
	ActionUpdateIdentity Action = "users:update"
	ActionDeleteIdentity Action = "users:delete"
	ActionReadSelf       Action = "users:read-self"
)

// Decision is the result of Decide.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// adminOnly actions ignore the target entirely.
var adminOnly = map[Action]bool{
	ActionListIdentities: true,
	ActionReadIdentity:   true,
	ActionCreateIdentity: true,
	ActionAssignRole:     true,
}

// selfService actions are allowed on one's own record and admin-only on
// anyone else's.
var selfService = map[Action]bool{
	ActionUpdateIdentity: true,
	ActionDeleteIdentity: true,
}

// Decide applies the rules in order:
//  1. admin-only actions require the admin role;
//  2. self-service actions on the caller's own record are allowed;
//  3. self-service actions on another record require the admin role.
//
// Anything else is denied.
func Decide(s Session, action Action, targetID string) Decision {
	switch {
	case s.Subject == "":
		return Deny
	case action == ActionReadSelf:
		return Allow
	case adminOnly[action]:
		return Decision(s.IsAdmin())
	case selfService[action] && targetID == s.Subject:
		return Allow
	case selfService[action]:
		return Decision(s.IsAdmin())
	}
	return Deny
}

// Authorize is Decide returning ErrForbidden on Deny.  A denied caller
// never learns whether the target exists.
func Authorize(s Session, action Action, targetID string) error {
	if Decide(s, action, targetID) == Deny {
		return ErrForbidden
	}
	return nil
}
