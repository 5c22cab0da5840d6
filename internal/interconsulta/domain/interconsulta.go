package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an interconsulta request.
//
// The transition graph:
//
//	Draft -> Submitted -> UnderReview -> Responded -> Closed
//	               \           \
//	                +-----------+--> Rejected
//
// Closed and Rejected are terminal; no operation leaves them.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusResponded   Status = "responded"
	StatusClosed      Status = "closed"
	StatusRejected    Status = "rejected"
)

// ErrInvalidTransition reports an operation applied from a state it is not
// defined for. The entity is left untouched when it is returned.
var ErrInvalidTransition = errors.New("invalid_transition")

// ParseStatus validates a stored or transmitted status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusSubmitted, StatusUnderReview,
		StatusResponded, StatusClosed, StatusRejected:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusRejected
}

func (s Status) String() string { return string(s) }

// Transition is one entry in the append-only history of a request.
type Transition struct {
	From      Status
	To        Status
	ActorID   string
	Note      string // optional, mandatory on rejection
	CreatedAt time.Time
}

// Interconsulta is a formal inter-party query exchanged between a stakeholder
// and the central records repository. It is owned by the lifecycle service;
// the store only persists it and never mutates status on its own.
//
// Version is the optimistic concurrency counter. Every persisted update must
// match the version it read, so concurrent transitions on the same request
// resolve to exactly one winner.
type Interconsulta struct {
	ID          string
	RequesterID string
	ReviewerID  string // assigned on claim, empty before
	Subject     string
	Category    string
	Payload     string
	Response    string
	Status      Status
	Version     int64
	History     []Transition
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Submit locks the draft and hands it to the review queue.
func (i *Interconsulta) Submit(actorID string, now time.Time) error {
	if i.Status != StatusDraft {
		return ErrInvalidTransition
	}
	i.apply(StatusSubmitted, actorID, "", now)
	return nil
}

// BeginReview assigns the reviewer and moves the request under review.
func (i *Interconsulta) BeginReview(reviewerID string, now time.Time) error {
	if i.Status != StatusSubmitted {
		return ErrInvalidTransition
	}
	i.ReviewerID = reviewerID
	i.apply(StatusUnderReview, reviewerID, "", now)
	return nil
}

// Respond records the reviewer's answer.
func (i *Interconsulta) Respond(reviewerID, response string, now time.Time) error {
	if i.Status != StatusUnderReview {
		return ErrInvalidTransition
	}
	i.Response = response
	i.apply(StatusResponded, reviewerID, "", now)
	return nil
}

// Close acknowledges receipt of the response. Terminal.
func (i *Interconsulta) Close(actorID string, now time.Time) error {
	if i.Status != StatusResponded {
		return ErrInvalidTransition
	}
	i.apply(StatusClosed, actorID, "", now)
	return nil
}

// Reject refuses the request with an explanatory note. Terminal.
func (i *Interconsulta) Reject(actorID, note string, now time.Time) error {
	if i.Status != StatusSubmitted && i.Status != StatusUnderReview {
		return ErrInvalidTransition
	}
	i.apply(StatusRejected, actorID, note, now)
	return nil
}

// apply moves the request to the target status and records the history entry.
func (i *Interconsulta) apply(to Status, actorID, note string, now time.Time) {
	i.History = append(i.History, Transition{
		From:      i.Status,
		To:        to,
		ActorID:   actorID,
		Note:      note,
		CreatedAt: now,
	})
	i.Status = to
	i.UpdatedAt = now
}
