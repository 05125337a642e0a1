// Package notif builds notification payloads for account and role events.
// Delivery is somebody else's problem: a Sink implementation (web push,
// console, ...) receives the payload and takes it from there.
package notif

import "context"

type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sink is any service that can deliver a payload to a user.
type Sink interface {
	Push(ctx context.Context, userID string, payload Payload) error
}

func RoleAssigned(userName, roleName string) Payload {
	return Payload{
		Title: "Role updated",
		Body:  userName + " is now " + roleName,
		Data:  map[string]string{"event": "role_assigned", "role": roleName},
	}
}

func AccountActivated(userName string) Payload {
	return Payload{
		Title: "Welcome",
		Body:  userName + "'s account is now active",
		Data:  map[string]string{"event": "account_activated"},
	}
}

func PasswordChanged() Payload {
	return Payload{
		Title: "Password changed",
		Body:  "Your password was changed. If this wasn't you, contact an administrator.",
		Data:  map[string]string{"event": "password_changed"},
	}
}
