package users

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revokedUser(login string) *User {
	now := time.Now().UTC()
	return &User{ID: "id-" + login, Login: login, RevokedOn: &now, RevokedBy: "Admin"}
}

func activeUser(login string) *User {
	return &User{ID: "id-" + login, Login: login}
}

func TestAuthorize(t *testing.T) {
	admin := &Caller{Login: "Admin", Admin: true}
	bob := &Caller{Login: "bob"}

	tests := []struct {
		name     string
		caller   *Caller
		target   *User
		action   Action
		wantKind Kind // zero means allowed
		wantMsg  bool
	}{
		{name: "no caller", caller: nil, target: activeUser("x"), action: ActionUpdateInfo, wantKind: KindUnauthenticated, wantMsg: true},
		{name: "no target", caller: bob, target: nil, action: ActionUpdateInfo, wantKind: KindNotFound},
		{name: "admin may update anyone", caller: admin, target: activeUser("bob"), action: ActionUpdateInfo},
		{name: "admin may update revoked record", caller: admin, target: revokedUser("bob"), action: ActionUpdateInfo},
		{name: "admin self-delete denied", caller: admin, target: activeUser("Admin"), action: ActionSoftDelete, wantKind: KindForbidden},
		{name: "admin hard self-delete denied", caller: admin, target: activeUser("Admin"), action: ActionHardDelete, wantKind: KindForbidden},
		{name: "non-admin self-delete denied", caller: bob, target: activeUser("bob"), action: ActionSoftDelete, wantKind: KindForbidden},
		{name: "admin deletes another user", caller: admin, target: activeUser("bob"), action: ActionSoftDelete},
		{name: "non-admin acts on other", caller: bob, target: activeUser("carol"), action: ActionChangePassword, wantKind: KindForbidden, wantMsg: true},
		{name: "not-self denial wins over revoked target", caller: bob, target: revokedUser("carol"), action: ActionUpdateInfo, wantKind: KindForbidden, wantMsg: true},
		{name: "revoked self may not update", caller: bob, target: revokedUser("bob"), action: ActionUpdateInfo, wantKind: KindForbidden, wantMsg: true},
		{name: "revoked self may not change password", caller: bob, target: revokedUser("bob"), action: ActionChangePassword, wantKind: KindForbidden, wantMsg: true},
		{name: "revoked self may not change login", caller: bob, target: revokedUser("bob"), action: ActionChangeLogin, wantKind: KindForbidden, wantMsg: true},
		{name: "active self allowed", caller: bob, target: activeUser("bob"), action: ActionUpdateInfo},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.caller, tt.target, tt.action)
			if tt.wantKind == 0 {
				require.NoError(t, err)
				return
			}

			var uerr *Error
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, tt.wantKind, uerr.Kind)
			if tt.wantMsg {
				assert.NotEmpty(t, uerr.Message)
			} else {
				assert.Empty(t, uerr.Message)
			}
		})
	}
}

func TestAuthorize_DenialMessagesPerAction(t *testing.T) {
	bob := &Caller{Login: "bob"}

	t.Run("not self", func(t *testing.T) {
		byAction := map[Action]string{}
		for _, a := range []Action{ActionUpdateInfo, ActionChangePassword, ActionChangeLogin} {
			var uerr *Error
			require.ErrorAs(t, Authorize(bob, activeUser("carol"), a), &uerr)
			byAction[a] = uerr.Message
		}
		assert.NotEqual(t, byAction[ActionUpdateInfo], byAction[ActionChangePassword])
		assert.NotEqual(t, byAction[ActionUpdateInfo], byAction[ActionChangeLogin])
	})

	t.Run("revoked self", func(t *testing.T) {
		byAction := map[Action]string{}
		for _, a := range []Action{ActionUpdateInfo, ActionChangePassword, ActionChangeLogin} {
			var uerr *Error
			require.ErrorAs(t, Authorize(bob, revokedUser("bob"), a), &uerr)
			byAction[a] = uerr.Message
		}
		assert.Contains(t, byAction[ActionChangePassword], "password")
		assert.Contains(t, byAction[ActionChangeLogin], "login")
	})
}

func TestAuthorizeAdmin(t *testing.T) {
	require.NoError(t, AuthorizeAdmin(&Caller{Login: "Admin", Admin: true}))

	err := AuthorizeAdmin(&Caller{Login: "bob"})
	require.True(t, errors.Is(err, ErrForbidden))

	var uerr *Error
	require.ErrorAs(t, err, &uerr)
	assert.Empty(t, uerr.Message, "role-gate denial carries no message")

	err = AuthorizeAdmin(nil)
	require.True(t, errors.Is(err, ErrUnauthenticated))
}
