package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/obs"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
	"github.com/portlink/interconsulta/pkg/idx"
	"github.com/portlink/interconsulta/pkg/slogx"
)

const (
	maxSubjectLen  = 200
	maxPayloadLen  = 8192
	maxResponseLen = 8192
	maxNoteLen     = 2000
)

// LifecycleService drives interconsulta requests through their state machine.
// Every write is guarded, optimistic-locked and leaves a history entry in the
// same transaction.
type LifecycleService struct {
	Store store.Store
	Guard Guard
}

// CreateInput are the caller-supplied fields of a new request.
type CreateInput struct {
	Subject  string
	Category string
	Payload  string
}

// Create opens a new draft owned by the caller.
func (s *LifecycleService) Create(ctx context.Context, id domain.Identity, in CreateInput) (domain.Interconsulta, error) {
	if err := s.Guard.AuthorizeAction(id, ActionCreate); err != nil {
		return domain.Interconsulta{}, err
	}

	in.Subject = strings.TrimSpace(in.Subject)
	in.Payload = strings.TrimSpace(in.Payload)
	in.Category = strings.TrimSpace(in.Category)

	switch {
	case in.Subject == "":
		return domain.Interconsulta{}, invalidField("subject", "must not be empty")
	case len(in.Subject) > maxSubjectLen:
		return domain.Interconsulta{}, invalidField("subject", "too long")
	case in.Payload == "":
		return domain.Interconsulta{}, invalidField("payload", "must not be empty")
	case len(in.Payload) > maxPayloadLen:
		return domain.Interconsulta{}, invalidField("payload", "too long")
	}

	now := time.Now().UTC()
	e := domain.Interconsulta{
		ID:          idx.New().String(),
		RequesterID: id.PrincipalID,
		Subject:     in.Subject,
		Category:    in.Category,
		Payload:     in.Payload,
		Status:      domain.StatusDraft,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Interconsultas().Create(ctx, e); err != nil {
		return domain.Interconsulta{}, err
	}

	slogx.FromContext(ctx).Info("interconsulta created",
		slog.String("interconsulta_id", e.ID),
		slog.String("requester_id", id.PrincipalID),
	)
	return e, nil
}

// Get returns a single request with its history.
func (s *LifecycleService) Get(ctx context.Context, id domain.Identity, interconsultaID string) (domain.Interconsulta, error) {
	if err := s.Guard.AuthorizeAction(id, ActionView); err != nil {
		return domain.Interconsulta{}, err
	}

	e, err := s.Store.Interconsultas().Get(ctx, interconsultaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Interconsulta{}, ErrNotFound
		}
		return domain.Interconsulta{}, err
	}

	if err := s.Guard.Authorize(id, ActionView, e); err != nil {
		return domain.Interconsulta{}, err
	}
	return e, nil
}

// List returns the requests visible to the caller, newest first, optionally
// filtered by status. Requesters see their own; reviewers see their
// assignments plus the unclaimed submitted queue; administrators see all.
func (s *LifecycleService) List(ctx context.Context, id domain.Identity, status *domain.Status) ([]domain.Interconsulta, error) {
	if err := s.Guard.AuthorizeAction(id, ActionList); err != nil {
		return nil, err
	}

	switch id.Role {
	case domain.RoleAdministrator:
		return s.Store.Interconsultas().List(ctx, status)

	case domain.RoleRequester:
		return s.Store.Interconsultas().ListByRequester(ctx, id.PrincipalID, status)

	case domain.RoleReviewer:
		if status != nil && *status == domain.StatusSubmitted {
			return s.Store.Interconsultas().ListByStatus(ctx, domain.StatusSubmitted)
		}

		assigned, err := s.Store.Interconsultas().ListByReviewer(ctx, id.PrincipalID, status)
		if err != nil {
			return nil, err
		}
		if status != nil {
			return assigned, nil
		}

		queue, err := s.Store.Interconsultas().ListByStatus(ctx, domain.StatusSubmitted)
		if err != nil {
			return nil, err
		}
		return mergeByID(assigned, queue), nil

	default:
		return nil, ErrForbidden
	}
}

// Submit hands a draft to the review queue.
func (s *LifecycleService) Submit(ctx context.Context, id domain.Identity, interconsultaID string) (domain.Interconsulta, error) {
	return s.transition(ctx, id, interconsultaID, ActionSubmit,
		func(e *domain.Interconsulta, now time.Time) error {
			return e.Submit(id.PrincipalID, now)
		})
}

// Claim assigns the calling reviewer and starts the review.
func (s *LifecycleService) Claim(ctx context.Context, id domain.Identity, interconsultaID string) (domain.Interconsulta, error) {
	return s.transition(ctx, id, interconsultaID, ActionClaim,
		func(e *domain.Interconsulta, now time.Time) error {
			return e.BeginReview(id.PrincipalID, now)
		})
}

// Respond records the reviewer's answer.
func (s *LifecycleService) Respond(ctx context.Context, id domain.Identity, interconsultaID, response string) (domain.Interconsulta, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return domain.Interconsulta{}, invalidField("response", "must not be empty")
	}
	if len(response) > maxResponseLen {
		return domain.Interconsulta{}, invalidField("response", "too long")
	}

	return s.transition(ctx, id, interconsultaID, ActionRespond,
		func(e *domain.Interconsulta, now time.Time) error {
			return e.Respond(id.PrincipalID, response, now)
		})
}

// Close acknowledges the response. Terminal.
func (s *LifecycleService) Close(ctx context.Context, id domain.Identity, interconsultaID string) (domain.Interconsulta, error) {
	return s.transition(ctx, id, interconsultaID, ActionClose,
		func(e *domain.Interconsulta, now time.Time) error {
			return e.Close(id.PrincipalID, now)
		})
}

// Reject refuses the request. The note is mandatory; a rejection with no
// reason is useless to the requester.
func (s *LifecycleService) Reject(ctx context.Context, id domain.Identity, interconsultaID, note string) (domain.Interconsulta, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return domain.Interconsulta{}, invalidField("note", "must not be empty")
	}
	if len(note) > maxNoteLen {
		return domain.Interconsulta{}, invalidField("note", "too long")
	}

	return s.transition(ctx, id, interconsultaID, ActionReject,
		func(e *domain.Interconsulta, now time.Time) error {
			return e.Reject(id.PrincipalID, note, now)
		})
}

// transition is the shared write path: static guard, load, resource guard,
// mutate, then persist row and history atomically under the version read.
func (s *LifecycleService) transition(
	ctx context.Context,
	id domain.Identity,
	interconsultaID string,
	action Action,
	mutate func(e *domain.Interconsulta, now time.Time) error,
) (domain.Interconsulta, error) {
	if err := s.Guard.AuthorizeAction(id, action); err != nil {
		return domain.Interconsulta{}, err
	}

	e, err := s.Store.Interconsultas().Get(ctx, interconsultaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Interconsulta{}, ErrNotFound
		}
		return domain.Interconsulta{}, err
	}

	if err := s.Guard.Authorize(id, action, e); err != nil {
		return domain.Interconsulta{}, err
	}

	readVersion := e.Version
	now := time.Now().UTC()

	if err := mutate(&e, now); err != nil {
		return domain.Interconsulta{}, err
	}
	e.Version = readVersion + 1

	entry := e.History[len(e.History)-1]
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Interconsultas().Update(ctx, e, readVersion); err != nil {
			return err
		}
		return tx.Interconsultas().AppendHistory(ctx, e.ID, entry)
	})
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return domain.Interconsulta{}, ErrConcurrentModification
		}
		if errors.Is(err, store.ErrNotFound) {
			return domain.Interconsulta{}, ErrNotFound
		}
		return domain.Interconsulta{}, err
	}

	obs.ObserveTransition(e.Status.String())
	slogx.FromContext(ctx).Info("interconsulta transition",
		slog.String("interconsulta_id", e.ID),
		slog.String("action", string(action)),
		slog.String("status", e.Status.String()),
		slog.String("actor_id", id.PrincipalID),
	)
	return e, nil
}

// mergeByID unions two listings, dropping duplicates and keeping newest-first
// order (IDs are ULIDs, lexicographically time-ordered).
func mergeByID(a, b []domain.Interconsulta) []domain.Interconsulta {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]domain.Interconsulta, 0, len(a)+len(b))
	for _, e := range append(a, b...) {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}
