package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/team"
)

var (
	teamColumns   = []string{"id", "coach_id", "name", "season", "level", "description", "is_active", "created_at", "updated_at"}
	playerColumns = []string{
		"id", "team_id", "first_name", "last_name", "jersey_number", "position", "grade", "email", "phone", "notes",
		"is_active", "created_at", "updated_at",
	}

	// unique among active rows, see the migrations
	teamNameIndex   = "team_coach_name_active_idx"
	jerseyIndex     = "player_team_jersey_active_idx"
	jerseyIndexCols = []string{"player.team_id", "player.jersey_number"}
)

type teamRow struct {
	ID          string    `db:"id"`
	CoachID     string    `db:"coach_id"`
	Name        string    `db:"name"`
	Season      string    `db:"season"`
	Level       string    `db:"level"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type playerRow struct {
	ID           string      `db:"id"`
	TeamID       string      `db:"team_id"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	JerseyNumber null.Int    `db:"jersey_number"`
	Position     null.String `db:"position"`
	Grade        string      `db:"grade"`
	Email        string      `db:"email"`
	Phone        string      `db:"phone"`
	Notes        string      `db:"notes"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type teamRepository struct {
	repository
}

var _ team.Repository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(exec core.DBExecutor) *teamRepository {
	return &teamRepository{repository{exec: exec}}
}

func (repo teamRepository) fromRow(r teamRow) team.Team {
	return team.Team{
		ID:          r.ID,
		CoachID:     r.CoachID,
		Name:        r.Name,
		Season:      r.Season,
		Level:       r.Level,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
}

func (repo teamRepository) playerFromRow(r playerRow) team.Player {
	return team.Player{
		ID:           r.ID,
		TeamID:       r.TeamID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		JerseyNumber: r.JerseyNumber,
		Position:     r.Position,
		Grade:        r.Grade,
		Email:        r.Email,
		Phone:        r.Phone,
		Notes:        r.Notes,
		IsActive:     r.IsActive,
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
	}
}

func (repo teamRepository) CreateTeam(ctx context.Context, t team.Team, exec ...core.DBExecutor) (team.Team, error) {
	t.CreatedAt, t.UpdatedAt = utc(t.CreatedAt), utc(t.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("team").Columns(teamColumns...).
		Values(t.ID, t.CoachID, t.Name, t.Season, t.Level, t.Description, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if _, err := execute(ctx, exe, qb); err != nil {
		return team.Team{}, trapUniqueErr(err, team.NameExistsError, "inserting team", teamNameIndex)
	}
	return t, nil
}

func (repo teamRepository) QueryTeams(ctx context.Context, filter *team.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]team.Team, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(teamColumns...).From("team")

	if filter != nil {
		if filter.CoachID != "" {
			if !validID(filter.CoachID) {
				return []team.Team{}, nil
			}
			qb = qb.Where(sq.Eq{"coach_id": filter.CoachID})
		}
		if filter.Search != "" {
			qb = qb.Where(iLike(exe, filter.Search, "name", "season", "level"))
		}
		if !filter.IncludeInactive {
			qb = qb.Where(sq.Eq{"is_active": true})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []teamRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	teams := make([]team.Team, 0, len(rows))
	for _, r := range rows {
		teams = append(teams, repo.fromRow(r))
	}
	return teams, nil
}

func (repo teamRepository) GetTeam(ctx context.Context, id string, exec ...core.DBExecutor) (team.Team, error) {
	if !validID(id) {
		return team.Team{}, team.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row teamRow
	qb := builder(exe).Select(teamColumns...).From("team").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return team.Team{}, trapNoRowsErr(err, team.ErrNotFound, "finding team")
	}
	return repo.fromRow(row), nil
}

func (repo teamRepository) UpdateTeam(ctx context.Context, t team.Team, exec ...core.DBExecutor) (team.Team, error) {
	if !validID(t.ID) {
		return team.Team{}, team.ErrNotFound
	}
	t.UpdatedAt = utc(t.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("team").SetMap(map[string]interface{}{
		"name":        t.Name,
		"season":      t.Season,
		"level":       t.Level,
		"description": t.Description,
		"is_active":   t.IsActive,
		"updated_at":  t.UpdatedAt,
	}).Where(sq.Eq{"id": t.ID})

	n, err := execute(ctx, exe, qb)
	if err != nil {
		return team.Team{}, trapUniqueErr(err, team.NameExistsError, "updating team", teamNameIndex)
	}
	if n == 0 {
		return team.Team{}, team.ErrNotFound
	}
	return t, nil
}

func (repo teamRepository) TeamNameExists(ctx context.Context, coachID, name, excludedID string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select("1").From("team").Where(sq.And{
		sq.Eq{"coach_id": coachID},
		sq.Eq{"is_active": true},
		sq.Eq{"LOWER(name)": lower(name)},
	})
	if excludedID != "" {
		qb = qb.Where(sq.NotEq{"id": excludedID})
	}
	return exists(ctx, exe, qb)
}

func (repo teamRepository) CreatePlayer(ctx context.Context, p team.Player, exec ...core.DBExecutor) (team.Player, error) {
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("player").Columns(playerColumns...).Values(
		p.ID, p.TeamID, p.FirstName, p.LastName, p.JerseyNumber, p.Position, p.Grade, p.Email, p.Phone, p.Notes,
		p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if _, err := execute(ctx, exe, qb); err != nil {
		return team.Player{}, trapUniqueErr(err, team.JerseyTakenError, "inserting player", jerseyIndex, jerseyIndexCols...)
	}
	return p, nil
}

func (repo teamRepository) QueryPlayers(ctx context.Context, filter *team.PlayerFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]team.Player, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(playerColumns...).From("player")

	if filter != nil {
		if filter.TeamID != "" {
			if !validID(filter.TeamID) {
				return []team.Player{}, nil
			}
			qb = qb.Where(sq.Eq{"team_id": filter.TeamID})
		}
		if filter.Position != "" {
			qb = qb.Where(sq.Eq{"position": filter.Position})
		}
		if filter.Search != "" {
			qb = qb.Where(iLike(exe, filter.Search, "first_name", "last_name"))
		}
		if !filter.IncludeInactive {
			qb = qb.Where(sq.Eq{"is_active": true})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []playerRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying players")
	}
	players := make([]team.Player, 0, len(rows))
	for _, r := range rows {
		players = append(players, repo.playerFromRow(r))
	}
	return players, nil
}

func (repo teamRepository) GetPlayer(ctx context.Context, id string, exec ...core.DBExecutor) (team.Player, error) {
	if !validID(id) {
		return team.Player{}, team.ErrPlayerNotFound
	}
	exe := repo.getExec(exec)

	var row playerRow
	qb := builder(exe).Select(playerColumns...).From("player").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return team.Player{}, trapNoRowsErr(err, team.ErrPlayerNotFound, "finding player")
	}
	return repo.playerFromRow(row), nil
}

func (repo teamRepository) UpdatePlayer(ctx context.Context, p team.Player, exec ...core.DBExecutor) (team.Player, error) {
	if !validID(p.ID) {
		return team.Player{}, team.ErrPlayerNotFound
	}
	p.UpdatedAt = utc(p.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("player").SetMap(map[string]interface{}{
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"jersey_number": p.JerseyNumber,
		"position":      p.Position,
		"grade":         p.Grade,
		"email":         p.Email,
		"phone":         p.Phone,
		"notes":         p.Notes,
		"is_active":     p.IsActive,
		"updated_at":    p.UpdatedAt,
	}).Where(sq.Eq{"id": p.ID})

	n, err := execute(ctx, exe, qb)
	if err != nil {
		return team.Player{}, trapUniqueErr(err, team.JerseyTakenError, "updating player", jerseyIndex, jerseyIndexCols...)
	}
	if n == 0 {
		return team.Player{}, team.ErrPlayerNotFound
	}
	return p, nil
}

func (repo teamRepository) JerseyNumberExists(ctx context.Context, teamID string, number int, excludedID string, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select("1").From("player").Where(sq.Eq{
		"team_id":       teamID,
		"jersey_number": number,
		"is_active":     true,
	})
	if excludedID != "" {
		qb = qb.Where(sq.NotEq{"id": excludedID})
	}
	return exists(ctx, exe, qb)
}
