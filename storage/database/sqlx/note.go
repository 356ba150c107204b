package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/note"
)

var noteColumns = []string{"id", "team_id", "coach_id", "player_id", "session_id", "practice_id", "body", "created_at", "updated_at"}

type noteRow struct {
	ID         string      `db:"id"`
	TeamID     string      `db:"team_id"`
	CoachID    null.String `db:"coach_id"`
	PlayerID   null.String `db:"player_id"`
	SessionID  null.String `db:"session_id"`
	PracticeID null.String `db:"practice_id"`
	Body       string      `db:"body"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type noteRepository struct {
	repository
}

var _ note.Repository = (*noteRepository)(nil) // interface compliance check

func NewNoteRepository(exec core.DBExecutor) *noteRepository {
	return &noteRepository{repository{exec: exec}}
}

func (repo noteRepository) fromRow(r noteRow) note.Note {
	return note.Note{
		ID:         r.ID,
		TeamID:     r.TeamID,
		CoachID:    r.CoachID,
		PlayerID:   r.PlayerID,
		SessionID:  r.SessionID,
		PracticeID: r.PracticeID,
		Body:       r.Body,
		CreatedAt:  utc(r.CreatedAt),
		UpdatedAt:  utc(r.UpdatedAt),
	}
}

func (repo noteRepository) CreateNote(ctx context.Context, n note.Note, exec ...core.DBExecutor) (note.Note, error) {
	n.CreatedAt, n.UpdatedAt = utc(n.CreatedAt), utc(n.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("note").Columns(noteColumns...).
		Values(n.ID, n.TeamID, n.CoachID, n.PlayerID, n.SessionID, n.PracticeID, n.Body, n.CreatedAt, n.UpdatedAt)
	if _, err := execute(ctx, exe, qb); err != nil {
		return note.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (repo noteRepository) QueryNotes(ctx context.Context, filter *note.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]note.Note, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(noteColumns...).From("note")

	if filter != nil {
		refs := map[string]string{
			"team_id":     filter.TeamID,
			"player_id":   filter.PlayerID,
			"session_id":  filter.SessionID,
			"practice_id": filter.PracticeID,
		}
		for col, id := range refs {
			if id == "" {
				continue
			}
			if !validID(id) {
				return []note.Note{}, nil
			}
			qb = qb.Where(sq.Eq{col: id})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []noteRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	notes := make([]note.Note, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, repo.fromRow(r))
	}
	return notes, nil
}

func (repo noteRepository) GetNote(ctx context.Context, id string, exec ...core.DBExecutor) (note.Note, error) {
	if !validID(id) {
		return note.Note{}, note.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row noteRow
	qb := builder(exe).Select(noteColumns...).From("note").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return note.Note{}, trapNoRowsErr(err, note.ErrNotFound, "finding note")
	}
	return repo.fromRow(row), nil
}

func (repo noteRepository) UpdateNote(ctx context.Context, n note.Note, exec ...core.DBExecutor) (note.Note, error) {
	if !validID(n.ID) {
		return note.Note{}, note.ErrNotFound
	}
	n.UpdatedAt = utc(n.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("note").
		Set("body", n.Body).
		Set("updated_at", n.UpdatedAt).
		Where(sq.Eq{"id": n.ID})
	cnt, err := execute(ctx, exe, qb)
	if err != nil {
		return note.Note{}, errors.Wrap(err, "updating note")
	}
	if cnt == 0 {
		return note.Note{}, note.ErrNotFound
	}
	return n, nil
}

func (repo noteRepository) DeleteNote(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return note.ErrNotFound
	}
	exe := repo.getExec(exec)

	cnt, err := execute(ctx, exe, builder(exe).Delete("note").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	if cnt == 0 {
		return note.ErrNotFound
	}
	return nil
}
