package service

import (
	"github.com/portlink/interconsulta/internal/interconsulta/domain"
)

// Action is one operation a principal may attempt. Guard decisions key on
// (role, action) first and on the concrete resource second.
type Action string

const (
	ActionCreate  Action = "create"
	ActionView    Action = "view"
	ActionList    Action = "list"
	ActionSubmit  Action = "submit"
	ActionClaim   Action = "claim"
	ActionRespond Action = "respond"
	ActionClose   Action = "close"
	ActionReject  Action = "reject"

	ActionManagePrincipals Action = "manage_principals"
)

// policy is the static role/action table. It is consulted before any resource
// is loaded, so a role that can never perform an action gets Forbidden without
// learning whether the resource exists.
var policy = map[domain.Role]map[Action]bool{
	domain.RoleRequester: {
		ActionCreate: true,
		ActionView:   true,
		ActionList:   true,
		ActionSubmit: true,
		ActionClose:  true,
	},
	domain.RoleReviewer: {
		ActionView:    true,
		ActionList:    true,
		ActionClaim:   true,
		ActionRespond: true,
		ActionReject:  true,
	},
	domain.RoleAdministrator: {
		ActionCreate:           true,
		ActionView:             true,
		ActionList:             true,
		ActionSubmit:           true,
		ActionClaim:            true,
		ActionRespond:          true,
		ActionClose:            true,
		ActionReject:           true,
		ActionManagePrincipals: true,
	},
}

// Guard makes authorization decisions. It is deterministic and side-effect
// free: same identity, action and resource always yield the same answer.
type Guard struct{}

// AuthorizeAction checks the static role/action table only. Callers run this
// before loading the resource; a static denial must not reveal existence.
func (Guard) AuthorizeAction(id domain.Identity, action Action) error {
	if policy[id.Role][action] {
		return nil
	}
	return ErrForbidden
}

// Authorize applies the per-resource rules after the static check passed and
// the resource was loaded.
//
// Requesters act only on their own requests. Reviewers reach requests assigned
// to them plus the unclaimed submitted queue, and may additionally read any
// request under review by a colleague. Administrators reach everything.
func (g Guard) Authorize(id domain.Identity, action Action, e domain.Interconsulta) error {
	if err := g.AuthorizeAction(id, action); err != nil {
		return err
	}

	switch id.Role {
	case domain.RoleAdministrator:
		return nil

	case domain.RoleRequester:
		if e.RequesterID == id.PrincipalID {
			return nil
		}
		return ErrForbidden

	case domain.RoleReviewer:
		if e.ReviewerID == id.PrincipalID {
			return nil
		}
		if e.Status == domain.StatusSubmitted {
			return nil
		}
		// Reads stay open while a colleague holds the review; mutations
		// from UnderReview remain assignee-only.
		if action == ActionView && e.Status == domain.StatusUnderReview {
			return nil
		}
		return ErrForbidden

	default:
		return ErrForbidden
	}
}
