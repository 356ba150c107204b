package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/practrac/practrac/core"
)

// repository holds what every repository shares: the default executor and the dialect helpers.
type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func isPostgres(exec core.DBExecutor) bool {
	return exec.DriverName() == "postgres"
}

// builder returns a statement builder using the placeholders of the executor's driver.
func builder(exec core.DBExecutor) sq.StatementBuilderType {
	if isPostgres(exec) {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// iLike is a case-insensitive LIKE on any of the columns. SQLite's LIKE already ignores the case of ASCII letters.
func iLike(exec core.DBExecutor, search string, cols ...string) sq.Or {
	op := "LIKE"
	if isPostgres(exec) {
		op = "ILIKE"
	}
	val := "%" + search + "%"
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.Expr(col+" "+op+" ?", val))
	}
	return or
}

func orderBy(ordering []core.DBOrdering) []string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return orderList
}

func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, qb sq.SelectBuilder) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.SelectContext(ctx, dest, query, args...)
}

func selectOne(ctx context.Context, exec core.DBExecutor, dest interface{}, qb sq.SelectBuilder) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.GetContext(ctx, dest, query, args...)
}

type sqlizer interface {
	ToSql() (string, []interface{}, error)
}

func execute(ctx context.Context, exec core.DBExecutor, qb sqlizer) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// exists runs `SELECT EXISTS (qb)`.
func exists(ctx context.Context, exec core.DBExecutor, qb sq.SelectBuilder) (bool, error) {
	sub, args, err := qb.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	query := "SELECT EXISTS (" + sub + ")"
	if isPostgres(exec) {
		if query, err = sq.Dollar.ReplacePlaceholders(query); err != nil {
			return false, errors.Wrap(err, "building query")
		}
	}
	var found bool
	if err = exec.GetContext(ctx, &found, query, args...); err != nil {
		return false, err
	}
	return found, nil
}

// trapNoRowsErr maps sql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err breaks the unique index `index`.
// SQLite names the index only for expression indexes, otherwise it lists the `table.column`s of the index.
func isUniqueViolation(err error, index string, cols ...string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == index
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if strings.Contains(msg, "'"+index+"'") {
		return true
	}
	if len(cols) == 0 {
		return false
	}
	for _, col := range cols {
		if !strings.Contains(msg, col) {
			return false
		}
	}
	return true
}

// trapUniqueErr maps the violation of the unique index `index` to taken.
func trapUniqueErr(err error, taken func() error, msg string, index string, cols ...string) error {
	if isUniqueViolation(err, index, cols...) {
		return taken()
	}
	return errors.Wrap(err, msg)
}

// validID reports whether id can be looked up. Anything else cannot exist and would make postgres fail on UUID columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validIDs drops the ids that cannot exist.
func validIDs(ids []string) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			res = append(res, id)
		}
	}
	return res
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullUTC(t null.Time) null.Time {
	if !t.Valid {
		return t
	}
	return null.TimeFrom(t.Time.UTC())
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func lower(s string) string {
	return strings.ToLower(s)
}
