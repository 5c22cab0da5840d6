package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/portlink/interconsulta/internal/interconsulta/domain"
	"github.com/portlink/interconsulta/internal/interconsulta/store"
)

type interconsultasRepo struct {
	db dbtx
}

const interconsultaColumns = `id, requester_id, reviewer_id, subject, category,
	payload, response, status, version, created_at, updated_at`

func (r *interconsultasRepo) Create(ctx context.Context, e domain.Interconsulta) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO interconsultas
		 (id, requester_id, reviewer_id, subject, category, payload, response, status, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequesterID, mapStringNull(e.ReviewerID), e.Subject, e.Category,
		e.Payload, e.Response, e.Status.String(), e.Version, e.CreatedAt, e.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *interconsultasRepo) Get(ctx context.Context, id string) (domain.Interconsulta, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+interconsultaColumns+` FROM interconsultas WHERE id = ?`, id)

	e, err := scanInterconsulta(row)
	if err != nil {
		return domain.Interconsulta{}, err
	}

	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return domain.Interconsulta{}, err
	}
	e.History = history

	return e, nil
}

// Update persists the row only if the stored version still equals
// readVersion. Zero affected rows means either the row vanished or another
// writer got there first; the two are told apart with a follow-up lookup.
func (r *interconsultasRepo) Update(ctx context.Context, e domain.Interconsulta, readVersion int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE interconsultas
		 SET reviewer_id = ?, subject = ?, category = ?, payload = ?, response = ?,
		     status = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		mapStringNull(e.ReviewerID), e.Subject, e.Category, e.Payload, e.Response,
		e.Status.String(), e.Version, e.UpdatedAt,
		e.ID, readVersion)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM interconsultas WHERE id = ?`, e.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return store.ErrVersionConflict
}

func (r *interconsultasRepo) AppendHistory(ctx context.Context, interconsultaID string, t domain.Transition) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO interconsulta_history
		 (interconsulta_id, seq, from_status, to_status, actor_id, note, created_at)
		 VALUES (?,
		         (SELECT COALESCE(MAX(seq), 0) + 1 FROM interconsulta_history WHERE interconsulta_id = ?),
		         ?, ?, ?, ?, ?)`,
		interconsultaID, interconsultaID,
		t.From.String(), t.To.String(), t.ActorID, t.Note, t.CreatedAt)
	return err
}

func (r *interconsultasRepo) ListByRequester(ctx context.Context, requesterID string, status *domain.Status) ([]domain.Interconsulta, error) {
	query := `SELECT ` + interconsultaColumns + ` FROM interconsultas WHERE requester_id = ?`
	args := []any{requesterID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, status.String())
	}
	query += ` ORDER BY id DESC`
	return r.list(ctx, query, args...)
}

func (r *interconsultasRepo) ListByReviewer(ctx context.Context, reviewerID string, status *domain.Status) ([]domain.Interconsulta, error) {
	query := `SELECT ` + interconsultaColumns + ` FROM interconsultas WHERE reviewer_id = ?`
	args := []any{reviewerID}
	if status != nil {
		query += ` AND status = ?`
		args = append(args, status.String())
	}
	query += ` ORDER BY id DESC`
	return r.list(ctx, query, args...)
}

func (r *interconsultasRepo) ListByStatus(ctx context.Context, status domain.Status) ([]domain.Interconsulta, error) {
	return r.list(ctx,
		`SELECT `+interconsultaColumns+` FROM interconsultas WHERE status = ? ORDER BY id DESC`,
		status.String())
}

func (r *interconsultasRepo) List(ctx context.Context, status *domain.Status) ([]domain.Interconsulta, error) {
	query := `SELECT ` + interconsultaColumns + ` FROM interconsultas`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, status.String())
	}
	query += ` ORDER BY id DESC`
	return r.list(ctx, query, args...)
}

// list runs a multi-row query. Listings omit history; callers needing the
// transition log use Get.
func (r *interconsultasRepo) list(ctx context.Context, query string, args ...any) ([]domain.Interconsulta, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Interconsulta
	for rows.Next() {
		e, err := scanInterconsulta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *interconsultasRepo) loadHistory(ctx context.Context, interconsultaID string) ([]domain.Transition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT from_status, to_status, actor_id, note, created_at
		 FROM interconsulta_history
		 WHERE interconsulta_id = ?
		 ORDER BY seq ASC`, interconsultaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.Transition
	for rows.Next() {
		var t domain.Transition
		var from, to string
		if err := rows.Scan(&from, &to, &t.ActorID, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.From, err = domain.ParseStatus(from); err != nil {
			return nil, err
		}
		if t.To, err = domain.ParseStatus(to); err != nil {
			return nil, err
		}
		history = append(history, t)
	}
	return history, rows.Err()
}

func scanInterconsulta(row interface{ Scan(...any) error }) (domain.Interconsulta, error) {
	var e domain.Interconsulta
	var reviewer sql.NullString
	var status string

	err := row.Scan(&e.ID, &e.RequesterID, &reviewer, &e.Subject, &e.Category,
		&e.Payload, &e.Response, &status, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return domain.Interconsulta{}, mapNotFound(err)
	}

	e.ReviewerID = mapNullString(reviewer)
	e.Status, err = domain.ParseStatus(status)
	if err != nil {
		return domain.Interconsulta{}, err
	}
	return e, nil
}
