package appointments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/doconsult-api/internal/identity"
)

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

func TestAllowedTable(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		to     Status
		role   identity.Role
		action Action
		want   bool
	}{
		{"patient pays pending", StatusPending, StatusConfirmed, identity.RolePatient, ActionConfirmPayment, true},
		{"payment is idempotent on confirmed", StatusConfirmed, StatusConfirmed, identity.RolePatient, ActionConfirmPayment, true},
		{"payment refused after completion", StatusCompleted, StatusConfirmed, identity.RolePatient, ActionConfirmPayment, false},
		{"payment refused after cancel", StatusCancelled, StatusConfirmed, identity.RoleAdmin, ActionConfirmPayment, false},
		{"doctor cannot confirm payment", StatusPending, StatusConfirmed, identity.RoleDoctor, ActionConfirmPayment, false},
		{"doctor confirms", StatusPending, StatusConfirmed, identity.RoleDoctor, ActionSetStatus, true},
		{"doctor marks no-show", StatusConfirmed, StatusNoShow, identity.RoleDoctor, ActionSetStatus, true},
		{"doctor cancels", StatusConfirmed, StatusCancelled, identity.RoleDoctor, ActionSetStatus, true},
		{"set status never completes", StatusConfirmed, StatusCompleted, identity.RoleAdmin, ActionSetStatus, false},
		{"doctor cannot restore", StatusCancelled, StatusConfirmed, identity.RoleDoctor, ActionSetStatus, false},
		{"admin restores cancelled", StatusCancelled, StatusConfirmed, identity.RoleAdmin, ActionSetStatus, true},
		{"admin restores no-show", StatusNoShow, StatusConfirmed, identity.RoleAdmin, ActionSetStatus, true},
		{"completed is closed to admin", StatusCompleted, StatusConfirmed, identity.RoleAdmin, ActionSetStatus, false},
		{"patient cannot set status", StatusPending, StatusCancelled, identity.RolePatient, ActionSetStatus, false},
		{"patient cancels pending", StatusPending, StatusCancelled, identity.RolePatient, ActionCancel, true},
		{"patient re-cancels", StatusCancelled, StatusCancelled, identity.RolePatient, ActionCancel, true},
		{"patient cannot cancel completed", StatusCompleted, StatusCancelled, identity.RolePatient, ActionCancel, false},
		{"patient cannot cancel no-show", StatusNoShow, StatusCancelled, identity.RolePatient, ActionCancel, false},
		{"doctor completes confirmed", StatusConfirmed, StatusCompleted, identity.RoleDoctor, ActionComplete, true},
		{"complete refused from cancelled", StatusCancelled, StatusCompleted, identity.RoleDoctor, ActionComplete, false},
		{"system expires pending", StatusPending, StatusCancelled, identity.RoleSystem, ActionExpire, true},
		{"system leaves cancelled", StatusCancelled, StatusCancelled, identity.RoleSystem, ActionExpire, false},
		{"admin cannot expire", StatusPending, StatusCancelled, identity.RoleAdmin, ActionExpire, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.from, tt.to, tt.role, tt.action))
		})
	}
}

func TestCompletedIsTerminalForEveryone(t *testing.T) {
	roles := []identity.Role{identity.RolePatient, identity.RoleDoctor, identity.RoleAdmin, identity.RoleSystem}
	actions := []Action{ActionConfirmPayment, ActionSetStatus, ActionCancel, ActionComplete, ActionExpire}
	for _, role := range roles {
		for _, action := range actions {
			for _, to := range allStatuses {
				assert.False(t, Allowed(StatusCompleted, to, role, action), "%s %s COMPLETED->%s", role, action, to)
			}
		}
	}
}

func TestCompletionOnlyThroughComplete(t *testing.T) {
	roles := []identity.Role{identity.RolePatient, identity.RoleDoctor, identity.RoleAdmin, identity.RoleSystem}
	for _, role := range roles {
		for _, action := range []Action{ActionConfirmPayment, ActionSetStatus, ActionCancel, ActionExpire} {
			for _, from := range allStatuses {
				assert.False(t, Allowed(from, StatusCompleted, role, action))
			}
		}
	}
}

func TestRoleMayAct(t *testing.T) {
	assert.True(t, RoleMayAct(identity.RoleDoctor, ActionSetStatus))
	assert.False(t, RoleMayAct(identity.RolePatient, ActionSetStatus))
	assert.False(t, RoleMayAct(identity.RoleDoctor, ActionCancel))
}
