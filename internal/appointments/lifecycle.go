package appointments

import "github.com/wolfman30/doconsult-api/internal/identity"

// Action names a lifecycle operation.
type Action string

const (
	ActionConfirmPayment Action = "confirm_payment"
	ActionSetStatus      Action = "set_status"
	ActionCancel         Action = "cancel"
	ActionComplete       Action = "complete"
	ActionExpire         Action = "expire"
)

type rule struct {
	roles []identity.Role
	from  []Status
	to    []Status
}

// transitions is the complete lifecycle. Anything not listed is refused.
// Ownership (patient or doctor of the appointment) is checked by the caller.
var transitions = map[Action][]rule{
	ActionConfirmPayment: {
		{roles: []identity.Role{identity.RolePatient, identity.RoleAdmin}, from: []Status{StatusPending, StatusConfirmed}, to: []Status{StatusConfirmed}},
	},
	ActionSetStatus: {
		{roles: []identity.Role{identity.RoleDoctor, identity.RoleAdmin}, from: []Status{StatusPending, StatusConfirmed}, to: []Status{StatusConfirmed, StatusCancelled, StatusNoShow}},
		// administrative restore
		{roles: []identity.Role{identity.RoleAdmin}, from: []Status{StatusCancelled, StatusNoShow}, to: []Status{StatusConfirmed}},
	},
	ActionCancel: {
		{roles: []identity.Role{identity.RolePatient}, from: []Status{StatusPending, StatusConfirmed, StatusCancelled}, to: []Status{StatusCancelled}},
	},
	ActionComplete: {
		{roles: []identity.Role{identity.RoleDoctor}, from: []Status{StatusPending, StatusConfirmed}, to: []Status{StatusCompleted}},
	},
	ActionExpire: {
		{roles: []identity.Role{identity.RoleSystem}, from: []Status{StatusPending, StatusConfirmed}, to: []Status{StatusCancelled}},
	},
}

// Allowed reports whether role may move an appointment from one status to
// another through action.
func Allowed(from, to Status, role identity.Role, action Action) bool {
	for _, r := range transitions[action] {
		if contains(r.roles, role) && contains(r.from, from) && contains(r.to, to) {
			return true
		}
	}
	return false
}

// RoleMayAct reports whether role may use action at all, regardless of state.
func RoleMayAct(role identity.Role, action Action) bool {
	for _, r := range transitions[action] {
		if contains(r.roles, role) {
			return true
		}
	}
	return false
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
