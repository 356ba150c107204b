package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
)

var coachColumns = []string{
	"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login",
}

// coachRow is the "coach" table. Empty usernames and emails are stored as NULL to keep them out of the unique indexes.
type coachRow struct {
	ID           string          `db:"id"`
	Name         string          `db:"name"`
	Username     null.String     `db:"username"`
	Email        null.String     `db:"email"`
	IsActive     bool            `db:"is_active"`
	Roles        core.StringList `db:"roles"`
	PasswordHash []byte          `db:"password_hash"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
	LastLogin    null.Time       `db:"last_login"`
}

func (r coachRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Roles, r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	}
}

type coachRepository struct {
	repository
}

var _ coach.Repository = (*coachRepository)(nil) // interface compliance check

func NewCoachRepository(exec core.DBExecutor) *coachRepository {
	return &coachRepository{repository{exec: exec}}
}

func (repo coachRepository) toRow(c coach.Coach) coachRow {
	roles := c.Roles
	if roles == nil {
		roles = core.StringList{}
	}
	return coachRow{
		ID:           c.ID,
		Name:         c.Name,
		Username:     nullString(lower(c.Username)),
		Email:        nullString(lower(c.Email)),
		IsActive:     c.IsActive,
		Roles:        roles,
		PasswordHash: c.PasswordHash,
		CreatedAt:    utc(c.CreatedAt),
		UpdatedAt:    utc(c.UpdatedAt),
		LastLogin:    nullUTC(c.LastLogin),
	}
}

func (repo coachRepository) fromRow(r coachRow) coach.Coach {
	roles := r.Roles
	if roles == nil {
		roles = core.StringList{}
	}
	return coach.Coach{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Roles:        roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
		LastLogin:    nullUTC(r.LastLogin),
	}
}

func (repo coachRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excluded []coach.Coach, exec ...core.DBExecutor) error {
	username, email = lower(username), lower(email)
	if username == "" && email == "" {
		return nil
	}
	exe := repo.getExec(exec)

	match := sq.Or{}
	if username != "" {
		match = append(match, sq.Eq{"username": username})
	}
	if email != "" {
		match = append(match, sq.Eq{"email": email})
	}
	qb := builder(exe).Select("1").From("coach").Where(match)

	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, c := range excluded {
			if c.ID != "" {
				ids = append(ids, c.ID)
			}
		}
		if len(ids) > 0 {
			qb = qb.Where(sq.NotEq{"id": ids})
		}
	}

	found, err := exists(ctx, exe, qb)
	if err != nil {
		return errors.Wrap(err, "checking coach uniqueness")
	}
	if found {
		return coach.ErrCoachExists
	}
	return nil
}

func (repo coachRepository) CreateCoach(ctx context.Context, c coach.Coach, exec ...core.DBExecutor) (coach.Coach, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	row := repo.toRow(c)
	exe := repo.getExec(exec)

	qb := builder(exe).Insert("coach").Columns(coachColumns...).Values(row.values()...)
	if _, err := execute(ctx, exe, qb); err != nil {
		return coach.Coach{}, errors.Wrap(err, "inserting coach")
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) QueryCoaches(ctx context.Context, filter *coach.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]coach.Coach, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(coachColumns...).From("coach")

	if filter != nil {
		// coaches with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			qb = qb.Where(iLike(exe, filter.Search, "name", "username", "email"))
		}
		// coaches with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roles := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, sq.Expr("(',' || roles) LIKE ?", "%,"+role+"%"))
			}
			qb = qb.Where(roles)
		}
		if filter.IsActive != nil {
			qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			qb = qb.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			qb = qb.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}
	qb = qb.OrderBy(orderBy(ordering)...)

	var rows []coachRow
	if err := selectAll(ctx, exe, &rows, qb); err != nil {
		return nil, errors.Wrap(err, "querying coaches")
	}
	coaches := make([]coach.Coach, 0, len(rows))
	for _, r := range rows {
		coaches = append(coaches, repo.fromRow(r))
	}
	return coaches, nil
}

func (repo coachRepository) GetCoach(ctx context.Context, filter coach.GetFilter, exec ...core.DBExecutor) (coach.Coach, error) {
	exe := repo.getExec(exec)
	qb := builder(exe).Select(coachColumns...).From("coach")

	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return coach.Coach{}, coach.ErrNotFound
		}
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		qb = qb.Where(sq.Eq{"username": lower(filter.Username)})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": lower(filter.Email)})
	case filter.UsernameOrEmail != "":
		val := lower(filter.UsernameOrEmail)
		qb = qb.Where(sq.Or{sq.Eq{"username": val}, sq.Eq{"email": val}})
	default:
		return coach.Coach{}, coach.ErrNotFound
	}

	var row coachRow
	if err := selectOne(ctx, exe, &row, qb.Limit(1)); err != nil {
		return coach.Coach{}, trapNoRowsErr(err, coach.ErrNotFound, "finding coach")
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) UpdateCoach(ctx context.Context, c coach.Coach, exec ...core.DBExecutor) (coach.Coach, error) {
	if !validID(c.ID) {
		return coach.Coach{}, coach.ErrNotFound
	}
	row := repo.toRow(c)
	exe := repo.getExec(exec)

	qb := builder(exe).Update("coach").SetMap(map[string]interface{}{
		"name":          row.Name,
		"username":      row.Username,
		"email":         row.Email,
		"is_active":     row.IsActive,
		"roles":         row.Roles,
		"password_hash": row.PasswordHash,
		"updated_at":    row.UpdatedAt,
		"last_login":    row.LastLogin,
	}).Where(sq.Eq{"id": row.ID})

	n, err := execute(ctx, exe, qb)
	if err != nil {
		return coach.Coach{}, errors.Wrap(err, "updating coach")
	}
	if n == 0 {
		return coach.Coach{}, coach.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) DeleteCoachesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	exe := repo.getExec(exec)

	n, err := execute(ctx, exe, builder(exe).Delete("coach").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting coaches")
	}
	return int(n), nil
}
