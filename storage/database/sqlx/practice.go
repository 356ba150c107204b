package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/practice"
)

var (
	practiceColumns = []string{
		"id", "team_id", "title", "scheduled_at", "location", "goals", "notes", "created_at", "updated_at",
	}
	phaseColumns = []string{"id", "practice_id", "position", "name", "drill_id", "duration_minutes", "notes"}
)

type practiceRow struct {
	ID          string    `db:"id"`
	TeamID      string    `db:"team_id"`
	Title       string    `db:"title"`
	ScheduledAt null.Time `db:"scheduled_at"`
	Location    string    `db:"location"`
	Goals       string    `db:"goals"`
	Notes       string    `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type phaseRow struct {
	ID              string      `db:"id"`
	PracticeID      string      `db:"practice_id"`
	Position        int         `db:"position"`
	Name            string      `db:"name"`
	DrillID         null.String `db:"drill_id"`
	DurationMinutes int         `db:"duration_minutes"`
	Notes           string      `db:"notes"`
}

type practiceRepository struct {
	repository
}

var _ practice.Repository = (*practiceRepository)(nil) // interface compliance check

func NewPracticeRepository(exec core.DBExecutor) *practiceRepository {
	return &practiceRepository{repository{exec: exec}}
}

func (repo practiceRepository) fromRow(r practiceRow) practice.Practice {
	return practice.Practice{
		ID:          r.ID,
		TeamID:      r.TeamID,
		Title:       r.Title,
		ScheduledAt: nullUTC(r.ScheduledAt),
		Location:    r.Location,
		Goals:       r.Goals,
		Notes:       r.Notes,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
}

func (repo practiceRepository) insertPhases(ctx context.Context, exe core.DBExecutor, phases []practice.Phase) error {
	if len(phases) == 0 {
		return nil
	}
	qb := builder(exe).Insert("practice_phase").Columns(phaseColumns...)
	for _, ph := range phases {
		qb = qb.Values(ph.ID, ph.PracticeID, ph.Position, ph.Name, ph.DrillID, ph.DurationMinutes, ph.Notes)
	}
	_, err := execute(ctx, exe, qb)
	return err
}

func (repo practiceRepository) CreatePractice(ctx context.Context, p practice.Practice, exec ...core.DBExecutor) (practice.Practice, error) {
	p.ScheduledAt = nullUTC(p.ScheduledAt)
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("practice").Columns(practiceColumns...).
		Values(p.ID, p.TeamID, p.Title, p.ScheduledAt, p.Location, p.Goals, p.Notes, p.CreatedAt, p.UpdatedAt)
	if _, err := execute(ctx, exe, qb); err != nil {
		return practice.Practice{}, errors.Wrap(err, "inserting practice")
	}
	if err := repo.insertPhases(ctx, exe, p.Phases); err != nil {
		return practice.Practice{}, errors.Wrap(err, "inserting phases")
	}
	if p.Phases == nil {
		p.Phases = []practice.Phase{}
	}
	return p, nil
}

func (repo practiceRepository) QueryPractices(ctx context.Context, filter *practice.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]practice.Practice, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(practiceColumns...).From("practice")

	if filter != nil {
		if filter.TeamID != "" {
			if !validID(filter.TeamID) {
				return []practice.Practice{}, nil
			}
			qb = qb.Where(sq.Eq{"team_id": filter.TeamID})
		}
		if !filter.From.IsZero() {
			qb = qb.Where(sq.GtOrEq{"scheduled_at": filter.From.UTC()})
		}
		if !filter.To.IsZero() {
			qb = qb.Where(sq.LtOrEq{"scheduled_at": filter.To.UTC()})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []practiceRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying practices")
	}
	practices := make([]practice.Practice, 0, len(rows))
	for _, r := range rows {
		practices = append(practices, repo.fromRow(r))
	}
	return practices, nil
}

func (repo practiceRepository) GetPractice(ctx context.Context, id string, exec ...core.DBExecutor) (practice.Practice, error) {
	if !validID(id) {
		return practice.Practice{}, practice.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row practiceRow
	qb := builder(exe).Select(practiceColumns...).From("practice").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return practice.Practice{}, trapNoRowsErr(err, practice.ErrNotFound, "finding practice")
	}
	return repo.fromRow(row), nil
}

func (repo practiceRepository) QueryPhases(ctx context.Context, practiceIDs []string, exec ...core.DBExecutor) ([]practice.Phase, error) {
	practiceIDs = validIDs(practiceIDs)
	if len(practiceIDs) == 0 {
		return []practice.Phase{}, nil
	}
	exe := repo.getExec(exec)

	var rows []phaseRow
	qb := builder(exe).Select(phaseColumns...).From("practice_phase").
		Where(sq.Eq{"practice_id": practiceIDs}).
		OrderBy("practice_id", "position")
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying phases")
	}
	phases := make([]practice.Phase, 0, len(rows))
	for _, r := range rows {
		phases = append(phases, practice.Phase(r))
	}
	return phases, nil
}

func (repo practiceRepository) UpdatePractice(ctx context.Context, p practice.Practice, exec ...core.DBExecutor) (practice.Practice, error) {
	if !validID(p.ID) {
		return practice.Practice{}, practice.ErrNotFound
	}
	p.ScheduledAt = nullUTC(p.ScheduledAt)
	p.UpdatedAt = utc(p.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("practice").SetMap(map[string]interface{}{
		"title":        p.Title,
		"scheduled_at": p.ScheduledAt,
		"location":     p.Location,
		"goals":        p.Goals,
		"notes":        p.Notes,
		"updated_at":   p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID})

	n, err := execute(ctx, exe, qb)
	if err != nil {
		return practice.Practice{}, errors.Wrap(err, "updating practice")
	}
	if n == 0 {
		return practice.Practice{}, practice.ErrNotFound
	}
	return p, nil
}

func (repo practiceRepository) ReplacePhases(ctx context.Context, practiceID string, phases []practice.Phase, exec ...core.DBExecutor) error {
	if !validID(practiceID) {
		return practice.ErrNotFound
	}
	exe := repo.getExec(exec)

	if _, err := execute(ctx, exe, builder(exe).Delete("practice_phase").Where(sq.Eq{"practice_id": practiceID})); err != nil {
		return errors.Wrap(err, "deleting phases")
	}
	return errors.Wrap(repo.insertPhases(ctx, exe, phases), "inserting phases")
}

func (repo practiceRepository) DeletePractice(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return practice.ErrNotFound
	}
	exe := repo.getExec(exec)

	n, err := execute(ctx, exe, builder(exe).Delete("practice").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting practice")
	}
	if n == 0 {
		return practice.ErrNotFound
	}
	return nil
}
