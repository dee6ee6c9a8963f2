package users

// Action is a mutating operation evaluated by the access policy.
type Action int

const (
	ActionUpdateInfo Action = iota + 1
	ActionChangePassword
	ActionChangeLogin
	ActionSoftDelete
	ActionHardDelete
	ActionRestore
)

// Authorize decides whether caller may perform action on target. It is a
// pure function; the checks run in a fixed precedence order and the first
// match wins:
//
//  1. no caller            -> unauthenticated
//  2. no target            -> not found
//  3. self-delete          -> forbidden, for admins too
//  4. caller is admin      -> allowed
//  5. caller is not target -> forbidden ("not self")
//  6. target revoked       -> forbidden (a revoked user may not touch
//     its own record)
//  7. otherwise            -> allowed
func Authorize(caller *Caller, target *User, action Action) error {
	if caller == nil {
		return newError(KindUnauthenticated, "You are not authenticated or the token is invalid.")
	}
	if target == nil {
		return ErrNotFound
	}

	if (action == ActionSoftDelete || action == ActionHardDelete) && caller.Login == target.Login {
		return ErrForbidden
	}

	if caller.Admin {
		return nil
	}

	if caller.Login != target.Login {
		return newError(KindForbidden, "%s", notSelfDenial(action))
	}
	if !target.Active() {
		return newError(KindForbidden, "%s", revokedDenial(action))
	}
	return nil
}

// AuthorizeAdmin gates operations that only administrators may perform.
// The denial carries no message: the transport reports the bare status,
// matching how role-gated endpoints behave.
func AuthorizeAdmin(caller *Caller) error {
	if caller == nil {
		return newError(KindUnauthenticated, "You are not authenticated or the token is invalid.")
	}
	if !caller.Admin {
		return ErrForbidden
	}
	return nil
}

func notSelfDenial(action Action) string {
	switch action {
	case ActionChangePassword:
		return "You may not change another user's password."
	case ActionChangeLogin:
		return "You may only change your own login."
	default:
		return "You may only modify your own data."
	}
}

func revokedDenial(action Action) string {
	switch action {
	case ActionChangePassword:
		return "Cannot change the password of a deleted user."
	case ActionChangeLogin:
		return "Cannot change the login of a deleted user."
	default:
		return "Cannot modify a deleted user."
	}
}
