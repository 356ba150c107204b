package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/session"
)

var (
	sessionColumns = []string{
		"id", "practice_id", "team_id", "practice_title", "status", "current_phase", "started_at", "paused_at",
		"paused_total", "phase_started_at", "phase_paused_total", "completed_at", "version", "created_at", "updated_at",
	}
	phaseLogColumns   = []string{"session_id", "position", "name", "drill_id", "planned", "elapsed", "started_at", "ended_at"}
	attendanceColumns = []string{"session_id", "player_id", "status", "note", "recorded_at"}
)

// sessionRow is the "practice_session" table. Durations are stored in nanoseconds.
type sessionRow struct {
	ID               string      `db:"id"`
	PracticeID       null.String `db:"practice_id"`
	TeamID           string      `db:"team_id"`
	PracticeTitle    string      `db:"practice_title"`
	Status           string      `db:"status"`
	CurrentPhase     int         `db:"current_phase"`
	StartedAt        null.Time   `db:"started_at"`
	PausedAt         null.Time   `db:"paused_at"`
	PausedTotal      int64       `db:"paused_total"`
	PhaseStartedAt   null.Time   `db:"phase_started_at"`
	PhasePausedTotal int64       `db:"phase_paused_total"`
	CompletedAt      null.Time   `db:"completed_at"`
	Version          int         `db:"version"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

type phaseLogRow struct {
	SessionID string      `db:"session_id"`
	Position  int         `db:"position"`
	Name      string      `db:"name"`
	DrillID   null.String `db:"drill_id"`
	Planned   int64       `db:"planned"`
	Elapsed   int64       `db:"elapsed"`
	StartedAt null.Time   `db:"started_at"`
	EndedAt   null.Time   `db:"ended_at"`
}

type attendanceRow struct {
	SessionID  string    `db:"session_id"`
	PlayerID   string    `db:"player_id"`
	Status     string    `db:"status"`
	Note       string    `db:"note"`
	RecordedAt time.Time `db:"recorded_at"`
}

type playerAttendanceRow struct {
	SessionID     string    `db:"session_id"`
	PracticeTitle string    `db:"practice_title"`
	StartedAt     null.Time `db:"started_at"`
	CreatedAt     time.Time `db:"created_at"`
	Status        string    `db:"status"`
	Note          string    `db:"note"`
}

type sessionRepository struct {
	repository
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(exec core.DBExecutor) *sessionRepository {
	return &sessionRepository{repository{exec: exec}}
}

func (repo sessionRepository) toRow(s session.Session) sessionRow {
	return sessionRow{
		ID:               s.ID,
		PracticeID:       s.PracticeID,
		TeamID:           s.TeamID,
		PracticeTitle:    s.PracticeTitle,
		Status:           s.Status,
		CurrentPhase:     s.CurrentPhase,
		StartedAt:        nullUTC(s.StartedAt),
		PausedAt:         nullUTC(s.PausedAt),
		PausedTotal:      int64(s.PausedTotal),
		PhaseStartedAt:   nullUTC(s.PhaseStartedAt),
		PhasePausedTotal: int64(s.PhasePausedTotal),
		CompletedAt:      nullUTC(s.CompletedAt),
		Version:          s.Version,
		CreatedAt:        utc(s.CreatedAt),
		UpdatedAt:        utc(s.UpdatedAt),
	}
}

func (repo sessionRepository) fromRow(r sessionRow) session.Session {
	return session.Session{
		ID:               r.ID,
		PracticeID:       r.PracticeID,
		TeamID:           r.TeamID,
		PracticeTitle:    r.PracticeTitle,
		Status:           r.Status,
		CurrentPhase:     r.CurrentPhase,
		StartedAt:        nullUTC(r.StartedAt),
		PausedAt:         nullUTC(r.PausedAt),
		PausedTotal:      time.Duration(r.PausedTotal),
		PhaseStartedAt:   nullUTC(r.PhaseStartedAt),
		PhasePausedTotal: time.Duration(r.PhasePausedTotal),
		CompletedAt:      nullUTC(r.CompletedAt),
		Version:          r.Version,
		CreatedAt:        utc(r.CreatedAt),
		UpdatedAt:        utc(r.UpdatedAt),
	}
}

func (repo sessionRepository) phaseFromRow(r phaseLogRow) session.PhaseLog {
	return session.PhaseLog{
		SessionID: r.SessionID,
		Position:  r.Position,
		Name:      r.Name,
		DrillID:   r.DrillID,
		Planned:   time.Duration(r.Planned),
		Elapsed:   time.Duration(r.Elapsed),
		StartedAt: nullUTC(r.StartedAt),
		EndedAt:   nullUTC(r.EndedAt),
	}
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	row := repo.toRow(s)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("practice_session").Columns(sessionColumns...).Values(
		row.ID, row.PracticeID, row.TeamID, row.PracticeTitle, row.Status, row.CurrentPhase, row.StartedAt, row.PausedAt,
		row.PausedTotal, row.PhaseStartedAt, row.PhasePausedTotal, row.CompletedAt, row.Version, row.CreatedAt, row.UpdatedAt,
	)
	if _, err := execute(ctx, exe, qb); err != nil {
		return session.Session{}, errors.Wrap(err, "inserting session")
	}

	if len(s.Phases) > 0 {
		pqb := builder(exe).Insert("session_phase").Columns(phaseLogColumns...)
		for _, ph := range s.Phases {
			pqb = pqb.Values(
				s.ID, ph.Position, ph.Name, ph.DrillID, int64(ph.Planned), int64(ph.Elapsed), nullUTC(ph.StartedAt), nullUTC(ph.EndedAt),
			)
		}
		if _, err := execute(ctx, exe, pqb); err != nil {
			return session.Session{}, errors.Wrap(err, "inserting phase log")
		}
	}

	created := repo.fromRow(row)
	created.Phases = s.Phases
	return created, nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]session.Session, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(sessionColumns...).From("practice_session")

	if filter != nil {
		if filter.TeamID != "" {
			if !validID(filter.TeamID) {
				return []session.Session{}, nil
			}
			qb = qb.Where(sq.Eq{"team_id": filter.TeamID})
		}
		if filter.Status != "" {
			qb = qb.Where(sq.Eq{"status": filter.Status})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []sessionRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, repo.fromRow(r))
	}
	return sessions, nil
}

func (repo sessionRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (session.Session, error) {
	if !validID(id) {
		return session.Session{}, session.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row sessionRow
	qb := builder(exe).Select(sessionColumns...).From("practice_session").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrNotFound, "finding session")
	}
	return repo.fromRow(row), nil
}

func (repo sessionRepository) QueryPhaseLogs(ctx context.Context, sessionIDs []string, exec ...core.DBExecutor) ([]session.PhaseLog, error) {
	sessionIDs = validIDs(sessionIDs)
	if len(sessionIDs) == 0 {
		return []session.PhaseLog{}, nil
	}
	exe := repo.getExec(exec)

	var rows []phaseLogRow
	qb := builder(exe).Select(phaseLogColumns...).From("session_phase").
		Where(sq.Eq{"session_id": sessionIDs}).
		OrderBy("session_id", "position")
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying phase logs")
	}
	logs := make([]session.PhaseLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, repo.phaseFromRow(r))
	}
	return logs, nil
}

func (repo sessionRepository) UpdateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	if !validID(s.ID) {
		return session.Session{}, session.ErrNotFound
	}
	row := repo.toRow(s)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("practice_session").SetMap(map[string]interface{}{
		"status":             row.Status,
		"current_phase":      row.CurrentPhase,
		"started_at":         row.StartedAt,
		"paused_at":          row.PausedAt,
		"paused_total":       row.PausedTotal,
		"phase_started_at":   row.PhaseStartedAt,
		"phase_paused_total": row.PhasePausedTotal,
		"completed_at":       row.CompletedAt,
		"version":            sq.Expr("version + 1"),
		"updated_at":         row.UpdatedAt,
	}).Where(sq.Eq{"id": row.ID, "version": row.Version})

	n, err := execute(ctx, exe, qb)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "updating session")
	}
	if n == 0 {
		if _, err := repo.GetSession(ctx, s.ID, exe); err != nil {
			return session.Session{}, err
		}
		return session.Session{}, core.ErrStaleObject
	}

	for _, ph := range s.Phases {
		pqb := builder(exe).Update("session_phase").SetMap(map[string]interface{}{
			"elapsed":    int64(ph.Elapsed),
			"started_at": nullUTC(ph.StartedAt),
			"ended_at":   nullUTC(ph.EndedAt),
		}).Where(sq.Eq{"session_id": s.ID, "position": ph.Position})
		if _, err := execute(ctx, exe, pqb); err != nil {
			return session.Session{}, errors.Wrap(err, "updating phase log")
		}
	}

	updated := repo.fromRow(row)
	updated.Version++
	updated.Phases = s.Phases
	return updated, nil
}

func (repo sessionRepository) DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return session.ErrNotFound
	}
	exe := repo.getExec(exec)

	n, err := execute(ctx, exe, builder(exe).Delete("practice_session").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (repo sessionRepository) QueryAttendance(ctx context.Context, sessionID string, exec ...core.DBExecutor) ([]session.Attendance, error) {
	if !validID(sessionID) {
		return []session.Attendance{}, nil
	}
	exe := repo.getExec(exec)

	var rows []attendanceRow
	qb := builder(exe).Select(attendanceColumns...).From("attendance").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("recorded_at", "player_id")
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]session.Attendance, 0, len(rows))
	for _, r := range rows {
		records = append(records, session.Attendance{
			SessionID:  r.SessionID,
			PlayerID:   r.PlayerID,
			Status:     r.Status,
			Note:       r.Note,
			RecordedAt: utc(r.RecordedAt),
		})
	}
	return records, nil
}

func (repo sessionRepository) UpsertAttendance(ctx context.Context, records []session.Attendance, exec ...core.DBExecutor) error {
	if len(records) == 0 {
		return nil
	}
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("attendance").Columns(attendanceColumns...)
	for _, r := range records {
		qb = qb.Values(r.SessionID, r.PlayerID, r.Status, r.Note, utc(r.RecordedAt))
	}
	// both engines support the upsert clause
	qb = qb.Suffix("ON CONFLICT (session_id, player_id) DO UPDATE SET " +
		"status = excluded.status, note = excluded.note, recorded_at = excluded.recorded_at")

	_, err := execute(ctx, exe, qb)
	return errors.Wrap(err, "upserting attendance")
}

func (repo sessionRepository) QueryPlayerAttendance(ctx context.Context, playerID string, exec ...core.DBExecutor) ([]session.PlayerAttendanceRecord, error) {
	if !validID(playerID) {
		return []session.PlayerAttendanceRecord{}, nil
	}
	exe := repo.getExec(exec)

	var rows []playerAttendanceRow
	qb := builder(exe).
		Select("s.id AS session_id", "s.practice_title", "s.started_at", "s.created_at", "a.status", "a.note").
		From("attendance a").
		Join("practice_session s ON s.id = a.session_id").
		Where(sq.Eq{"a.player_id": playerID}).
		OrderBy("s.created_at DESC")
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying player attendance")
	}

	records := make([]session.PlayerAttendanceRecord, 0, len(rows))
	for _, r := range rows {
		date := r.CreatedAt
		if r.StartedAt.Valid {
			date = r.StartedAt.Time
		}
		records = append(records, session.PlayerAttendanceRecord{
			SessionID:     r.SessionID,
			PracticeTitle: r.PracticeTitle,
			SessionDate:   utc(date),
			Status:        r.Status,
			Note:          r.Note,
		})
	}
	return records, nil
}

func (repo sessionRepository) CountNotes(ctx context.Context, sessionID string, exec ...core.DBExecutor) (int, error) {
	if !validID(sessionID) {
		return 0, nil
	}
	exe := repo.getExec(exec)

	var count int
	qb := builder(exe).Select("COUNT(*)").From("note").Where(sq.Eq{"session_id": sessionID})
	if err := selectOne(ctx, exe, &count, qb); err != nil {
		return 0, errors.Wrap(err, "counting notes")
	}
	return count, nil
}
