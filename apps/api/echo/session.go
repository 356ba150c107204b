package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
)

type sessionApi struct {
	svc      session.Service
	teamSvc  team.Service
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc session.Service, teamSvc team.Service, validate *validator.Validate) {
	api := sessionApi{
		svc:      svc,
		teamSvc:  teamSvc,
		validate: validate,
	}

	g.GET("/teams/:id/sessions", api.query, withAuth(auth, teamMiddleware(teamSvc))...)

	// detail endpoints
	dg := g.Group("/sessions/:id", withAuth(auth, api.sessionMiddleware)...)
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	for _, action := range session.Actions {
		dg.POST("/"+action, api.transition(action))
	}
	dg.GET("/attendance", api.getAttendance)
	dg.PUT("/attendance", api.setAttendance)
	dg.GET("/summary", api.summary)
}

// sessionMiddleware loads the session `:id` when its team is accessible to the context coach.
func (api *sessionApi) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		t, err := accessibleTeam(ctx, api.teamSvc, s.TeamID)
		if err != nil {
			if errors.Cause(err) == team.ErrNotFound {
				return session.ErrNotFound
			}
			return err
		}
		ctx.Set(ctxTeamKey, t)
		ctx.Set(ctxSessionKey, s)
		return next(ctx)
	}
}

func (api *sessionApi) query(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}

	filter := new(session.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.TeamID = t.ID
	filter.Status = core.CleanString(filter.Status, true /* lower */)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	now := api.svc.Now()
	res := make([]session.View, 0, len(sessions))
	for _, s := range sessions {
		res = append(res, s.View(now))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	s, err := fromContext[session.Session](ctx, ctxSessionKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.View(api.svc.Now()))
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	s, err := fromContext[session.Session](ctx, ctxSessionKey)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), s); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// transition returns the handler applying action to the session.
// The optional `version` query param makes the request fail when the session moved on since the client read it.
func (api *sessionApi) transition(action string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := fromContext[session.Session](ctx, ctxSessionKey)
		if err != nil {
			return err
		}

		s, err = api.svc.Transition(ctx.Request().Context(), s.ID, action, versionQueryParam(ctx))
		if err != nil {
			return errors.Wrapf(err, "applying %s", action)
		}
		return ctx.JSON(http.StatusOK, s.View(api.svc.Now()))
	}
}

func (api *sessionApi) getAttendance(ctx echo.Context) error {
	s, err := fromContext[session.Session](ctx, ctxSessionKey)
	if err != nil {
		return err
	}
	records, err := api.svc.GetAttendance(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "getting attendance")
	}
	if records == nil {
		records = []session.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *sessionApi) setAttendance(ctx echo.Context) error {
	s, err := fromContext[session.Session](ctx, ctxSessionKey)
	if err != nil {
		return err
	}

	var data session.AttendanceUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceUpdate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	records, err := api.svc.SetAttendance(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "setting attendance")
	}
	if records == nil {
		records = []session.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *sessionApi) summary(ctx echo.Context) error {
	s, err := fromContext[session.Session](ctx, ctxSessionKey)
	if err != nil {
		return err
	}
	sum, err := api.svc.Summary(ctx.Request().Context(), s)
	if err != nil {
		return errors.Wrap(err, "summarizing session")
	}
	return ctx.JSON(http.StatusOK, sum)
}
