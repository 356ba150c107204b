package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
)

type practiceApi struct {
	svc        practice.Service
	teamSvc    team.Service
	sessionSvc session.Service
	validate   *validator.Validate
}

func registerPracticeAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc practice.Service, teamSvc team.Service, sessionSvc session.Service, validate *validator.Validate) {
	api := practiceApi{
		svc:        svc,
		teamSvc:    teamSvc,
		sessionSvc: sessionSvc,
		validate:   validate,
	}

	tg := g.Group("/teams/:id/practices", withAuth(auth, teamMiddleware(teamSvc))...)
	tg.GET("", api.query)
	tg.POST("", api.create)

	// detail endpoints
	dg := g.Group("/practices/:id", withAuth(auth, api.practiceMiddleware)...)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/duplicate", api.duplicate)
	dg.POST("/sessions", api.createSession)
}

// practiceMiddleware loads the practice `:id` and its team, when the latter is accessible to the context coach.
func (api *practiceApi) practiceMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		t, err := accessibleTeam(ctx, api.teamSvc, p.TeamID)
		if err != nil {
			if errors.Cause(err) == team.ErrNotFound {
				return practice.ErrNotFound
			}
			return err
		}
		ctx.Set(ctxTeamKey, t)
		ctx.Set(ctxPracticeKey, p)
		return next(ctx)
	}
}

func (api *practiceApi) query(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}

	filter := new(practice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.TeamID = t.ID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	practices, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying practices")
	}
	res := make([]practice.PracticeResponse, 0, len(practices))
	for _, p := range practices {
		res = append(res, p.Response())
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *practiceApi) create(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	var data practice.NewPractice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPractice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), c, t, data)
	if err != nil {
		return errors.Wrap(err, "creating practice")
	}
	return ctx.JSON(http.StatusCreated, p.Response())
}

func (api *practiceApi) retrieve(ctx echo.Context) error {
	p, err := fromContext[practice.Practice](ctx, ctxPracticeKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p.Response())
}

func (api *practiceApi) update(ctx echo.Context) error {
	p, err := fromContext[practice.Practice](ctx, ctxPracticeKey)
	if err != nil {
		return err
	}
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	var data practice.NewPractice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPractice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err = api.svc.Update(ctx.Request().Context(), c, t, p, data)
	if err != nil {
		return errors.Wrap(err, "updating practice")
	}
	return ctx.JSON(http.StatusOK, p.Response())
}

func (api *practiceApi) destroy(ctx echo.Context) error {
	p, err := fromContext[practice.Practice](ctx, ctxPracticeKey)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "deleting practice")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *practiceApi) duplicate(ctx echo.Context) error {
	p, err := fromContext[practice.Practice](ctx, ctxPracticeKey)
	if err != nil {
		return err
	}

	var data practice.DuplicateRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to DuplicateRequest")
		}
	}

	dup, err := api.svc.Duplicate(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "duplicating practice")
	}
	return ctx.JSON(http.StatusCreated, dup.Response())
}

func (api *practiceApi) createSession(ctx echo.Context) error {
	p, err := fromContext[practice.Practice](ctx, ctxPracticeKey)
	if err != nil {
		return err
	}

	s, err := api.sessionSvc.Create(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, s.View(api.sessionSvc.Now()))
}
