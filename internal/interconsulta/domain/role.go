package domain

import "fmt"

// Role is the closed set of stakeholder roles. Keeping it a typed constant
// set (instead of free-form role rows) means every new action the guard
// learns about forces a visible policy decision at compile time.
type Role string

const (
	// RoleRequester is an external stakeholder (shipping agent, cargo
	// owner, port operator) who originates interconsulta requests.
	RoleRequester Role = "requester"

	// RoleReviewer is terminal staff who claims and answers requests.
	RoleReviewer Role = "reviewer"

	// RoleAdministrator manages principals and may intervene on any request.
	RoleAdministrator Role = "administrator"
)

// ParseRole validates a stored or transmitted role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRequester, RoleReviewer, RoleAdministrator:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }
