package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/drill"
)

var (
	drillColumns = []string{
		"id", "coach_id", "name", "category", "skill_level", "description", "min_players", "max_players",
		"duration_minutes", "equipment", "diagram", "is_active", "created_at", "updated_at",
	}
	videoColumns = []string{"id", "drill_id", "title", "url", "created_at"}
)

// drillRow is the "drill" table. The diagram is sent and read as text so that both JSONB and TEXT columns accept it.
type drillRow struct {
	ID              string      `db:"id"`
	CoachID         string      `db:"coach_id"`
	Name            string      `db:"name"`
	Category        string      `db:"category"`
	SkillLevel      string      `db:"skill_level"`
	Description     string      `db:"description"`
	MinPlayers      int         `db:"min_players"`
	MaxPlayers      int         `db:"max_players"`
	DurationMinutes int         `db:"duration_minutes"`
	Equipment       string      `db:"equipment"`
	Diagram         null.String `db:"diagram"`
	IsActive        bool        `db:"is_active"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

type videoRow struct {
	ID        string    `db:"id"`
	DrillID   string    `db:"drill_id"`
	Title     string    `db:"title"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

type drillRepository struct {
	repository
}

var _ drill.Repository = (*drillRepository)(nil) // interface compliance check

func NewDrillRepository(exec core.DBExecutor) *drillRepository {
	return &drillRepository{repository{exec: exec}}
}

func diagramText(j null.JSON) null.String {
	if !j.Valid || len(j.JSON) == 0 {
		return null.String{}
	}
	return null.StringFrom(string(j.JSON))
}

func (repo drillRepository) fromRow(r drillRow) drill.Drill {
	d := drill.Drill{
		ID:              r.ID,
		CoachID:         r.CoachID,
		Name:            r.Name,
		Category:        r.Category,
		SkillLevel:      r.SkillLevel,
		Description:     r.Description,
		MinPlayers:      r.MinPlayers,
		MaxPlayers:      r.MaxPlayers,
		DurationMinutes: r.DurationMinutes,
		Equipment:       r.Equipment,
		IsActive:        r.IsActive,
		CreatedAt:       utc(r.CreatedAt),
		UpdatedAt:       utc(r.UpdatedAt),
	}
	if r.Diagram.Valid {
		d.Diagram = null.JSONFrom([]byte(r.Diagram.String))
	}
	return d
}

func (repo drillRepository) videoFromRow(r videoRow) drill.Video {
	return drill.Video{
		ID:        r.ID,
		DrillID:   r.DrillID,
		Title:     r.Title,
		URL:       r.URL,
		CreatedAt: utc(r.CreatedAt),
	}
}

func (repo drillRepository) CreateDrill(ctx context.Context, d drill.Drill, exec ...core.DBExecutor) (drill.Drill, error) {
	d.CreatedAt, d.UpdatedAt = utc(d.CreatedAt), utc(d.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("drill").Columns(drillColumns...).Values(
		d.ID, d.CoachID, d.Name, d.Category, d.SkillLevel, d.Description, d.MinPlayers, d.MaxPlayers,
		d.DurationMinutes, d.Equipment, diagramText(d.Diagram), d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if _, err := execute(ctx, exe, qb); err != nil {
		return drill.Drill{}, errors.Wrap(err, "inserting drill")
	}
	return d, nil
}

func (repo drillRepository) QueryDrills(ctx context.Context, filter *drill.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]drill.Drill, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(drillColumns...).From("drill")

	if filter != nil {
		if filter.CoachID != "" {
			if !validID(filter.CoachID) {
				return []drill.Drill{}, nil
			}
			qb = qb.Where(sq.Eq{"coach_id": filter.CoachID})
		}
		if filter.Search != "" {
			qb = qb.Where(iLike(exe, filter.Search, "name", "description", "equipment"))
		}
		if filter.Category != "" {
			qb = qb.Where(sq.Eq{"category": filter.Category})
		}
		if filter.SkillLevel != "" {
			qb = qb.Where(sq.Eq{"skill_level": filter.SkillLevel})
		}
		if !filter.IncludeInactive {
			qb = qb.Where(sq.Eq{"is_active": true})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []drillRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying drills")
	}
	drills := make([]drill.Drill, 0, len(rows))
	for _, r := range rows {
		drills = append(drills, repo.fromRow(r))
	}
	return drills, nil
}

func (repo drillRepository) GetDrill(ctx context.Context, id string, exec ...core.DBExecutor) (drill.Drill, error) {
	if !validID(id) {
		return drill.Drill{}, drill.ErrNotFound
	}
	exe := repo.getExec(exec)

	var row drillRow
	qb := builder(exe).Select(drillColumns...).From("drill").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return drill.Drill{}, trapNoRowsErr(err, drill.ErrNotFound, "finding drill")
	}
	return repo.fromRow(row), nil
}

func (repo drillRepository) UpdateDrill(ctx context.Context, d drill.Drill, exec ...core.DBExecutor) (drill.Drill, error) {
	if !validID(d.ID) {
		return drill.Drill{}, drill.ErrNotFound
	}
	d.UpdatedAt = utc(d.UpdatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("drill").SetMap(map[string]interface{}{
		"name":             d.Name,
		"category":         d.Category,
		"skill_level":      d.SkillLevel,
		"description":      d.Description,
		"min_players":      d.MinPlayers,
		"max_players":      d.MaxPlayers,
		"duration_minutes": d.DurationMinutes,
		"equipment":        d.Equipment,
		"diagram":          diagramText(d.Diagram),
		"is_active":        d.IsActive,
		"updated_at":       d.UpdatedAt,
	}).Where(sq.Eq{"id": d.ID})

	n, err := execute(ctx, exe, qb)
	if err != nil {
		return drill.Drill{}, errors.Wrap(err, "updating drill")
	}
	if n == 0 {
		return drill.Drill{}, drill.ErrNotFound
	}
	return d, nil
}

func (repo drillRepository) CreateVideo(ctx context.Context, v drill.Video, exec ...core.DBExecutor) (drill.Video, error) {
	v.CreatedAt = utc(v.CreatedAt)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("drill_video").Columns(videoColumns...).Values(v.ID, v.DrillID, v.Title, v.URL, v.CreatedAt)
	if _, err := execute(ctx, exe, qb); err != nil {
		return drill.Video{}, errors.Wrap(err, "inserting video")
	}
	return v, nil
}

func (repo drillRepository) QueryVideos(ctx context.Context, drillIDs []string, exec ...core.DBExecutor) ([]drill.Video, error) {
	drillIDs = validIDs(drillIDs)
	if len(drillIDs) == 0 {
		return []drill.Video{}, nil
	}
	exe := repo.getExec(exec)

	var rows []videoRow
	qb := builder(exe).Select(videoColumns...).From("drill_video").
		Where(sq.Eq{"drill_id": drillIDs}).
		OrderBy("created_at ASC", "id ASC")
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	videos := make([]drill.Video, 0, len(rows))
	for _, r := range rows {
		videos = append(videos, repo.videoFromRow(r))
	}
	return videos, nil
}

func (repo drillRepository) GetVideo(ctx context.Context, id string, exec ...core.DBExecutor) (drill.Video, error) {
	if !validID(id) {
		return drill.Video{}, drill.ErrVideoNotFound
	}
	exe := repo.getExec(exec)

	var row videoRow
	qb := builder(exe).Select(videoColumns...).From("drill_video").Where(sq.Eq{"id": id})
	if err := selectOne(ctx, exe, &row, qb); err != nil {
		return drill.Video{}, trapNoRowsErr(err, drill.ErrVideoNotFound, "finding video")
	}
	return repo.videoFromRow(row), nil
}

func (repo drillRepository) DeleteVideo(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return drill.ErrVideoNotFound
	}
	exe := repo.getExec(exec)

	n, err := execute(ctx, exe, builder(exe).Delete("drill_video").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting video")
	}
	if n == 0 {
		return drill.ErrVideoNotFound
	}
	return nil
}
