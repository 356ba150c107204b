package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/team"
)

// Keys of the objects loaded by the access middlewares.
const (
	ctxTeamKey     = "team"
	ctxPlayerKey   = "player"
	ctxDrillKey    = "drill"
	ctxPracticeKey = "practice"
	ctxSessionKey  = "session"
	ctxNoteKey     = "note"
)

// withAuth returns the auth middlewares followed by mws, without touching auth.
func withAuth(auth []echo.MiddlewareFunc, mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	all := make([]echo.MiddlewareFunc, 0, len(auth)+len(mws))
	all = append(all, auth...)
	return append(all, mws...)
}

func fromContext[T any](ctx echo.Context, key string) (T, error) {
	obj, ok := ctx.Get(key).(T)
	if !ok {
		var zero T
		return zero, errors.Errorf("%s not found in echo.Context", key)
	}
	return obj, nil
}

// accessibleTeam returns the team `id` when the context coach owns it or is an admin.
// Anybody else gets team.ErrNotFound so that the team's existence is not disclosed.
func accessibleTeam(ctx echo.Context, svc team.Service, id string) (team.Team, error) {
	c, err := getContextCoach(ctx)
	if err != nil {
		return team.Team{}, errors.Wrap(err, "getting context coach")
	}
	t, err := svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return team.Team{}, err
	}
	if !c.CanManage(t.CoachID) {
		return team.Team{}, team.ErrNotFound
	}
	return t, nil
}

// teamMiddleware loads the team `:id` into the echo.Context.
func teamMiddleware(svc team.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			t, err := accessibleTeam(ctx, svc, ctx.Param("id"))
			if err != nil {
				return err
			}
			ctx.Set(ctxTeamKey, t)
			return next(ctx)
		}
	}
}

// ownerFilter restricts a query to the coach's own resources, unless they are an admin.
func ownerFilter(c coach.Coach, requested string) string {
	if c.IsAdmin() {
		return requested
	}
	return c.ID
}
