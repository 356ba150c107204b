package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
)

type teamApi struct {
	svc        team.Service
	sessionSvc session.Service
	validate   *validator.Validate
}

func registerTeamAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc team.Service, sessionSvc session.Service, validate *validator.Validate) {
	api := teamApi{
		svc:        svc,
		sessionSvc: sessionSvc,
		validate:   validate,
	}

	tg := g.Group("/teams", auth...)
	tg.GET("", api.query)
	tg.POST("", api.create)

	// detail endpoints
	dg := tg.Group("/:id", teamMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/restore", api.restore)

	// roster
	dg.GET("/players", api.queryPlayers)
	dg.POST("/players", api.createPlayer)
	pg := dg.Group("/players/:playerId", api.playerMiddleware)
	pg.GET("", api.retrievePlayer)
	pg.PUT("", api.updatePlayer)
	pg.DELETE("", api.destroyPlayer)
	pg.POST("/restore", api.restorePlayer)
	pg.GET("/attendance", api.playerAttendance)
}

// Teams

func (api *teamApi) query(ctx echo.Context) error {
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	filter := new(team.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.CoachID = ownerFilter(c, filter.CoachID)
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	teams, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying teams")
	}
	if teams == nil {
		teams = []team.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *teamApi) create(ctx echo.Context) error {
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	var data team.NewTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating team")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *teamApi) retrieve(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) update(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}

	var data team.NewTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err = api.svc.Update(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "updating team")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *teamApi) destroy(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}
	if _, err := api.svc.Deactivate(ctx.Request().Context(), t); err != nil {
		return errors.Wrap(err, "deactivating team")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teamApi) restore(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}
	t, err = api.svc.Restore(ctx.Request().Context(), t)
	if err != nil {
		return errors.Wrap(err, "restoring team")
	}
	return ctx.JSON(http.StatusOK, t)
}

// Players

func (api *teamApi) playerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		t, err := fromContext[team.Team](ctx, ctxTeamKey)
		if err != nil {
			return err
		}
		p, err := api.svc.GetPlayer(ctx.Request().Context(), t.ID, ctx.Param("playerId"))
		if err != nil {
			return err
		}
		ctx.Set(ctxPlayerKey, p)
		return next(ctx)
	}
}

func (api *teamApi) queryPlayers(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}

	filter := new(team.PlayerFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to PlayerFilter")
	}
	filter.TeamID = t.ID
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	players, err := api.svc.QueryPlayers(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying players")
	}
	if players == nil {
		players = []team.Player{}
	}
	return ctx.JSON(http.StatusOK, players)
}

func (api *teamApi) createPlayer(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}

	var data team.NewPlayer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlayer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.CreatePlayer(ctx.Request().Context(), t, data)
	if err != nil {
		return errors.Wrap(err, "creating player")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *teamApi) retrievePlayer(ctx echo.Context) error {
	p, err := fromContext[team.Player](ctx, ctxPlayerKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *teamApi) updatePlayer(ctx echo.Context) error {
	p, err := fromContext[team.Player](ctx, ctxPlayerKey)
	if err != nil {
		return err
	}

	var data team.NewPlayer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlayer")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	p, err = api.svc.UpdatePlayer(ctx.Request().Context(), p, data)
	if err != nil {
		return errors.Wrap(err, "updating player")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *teamApi) destroyPlayer(ctx echo.Context) error {
	p, err := fromContext[team.Player](ctx, ctxPlayerKey)
	if err != nil {
		return err
	}
	if _, err := api.svc.DeactivatePlayer(ctx.Request().Context(), p); err != nil {
		return errors.Wrap(err, "deactivating player")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *teamApi) restorePlayer(ctx echo.Context) error {
	p, err := fromContext[team.Player](ctx, ctxPlayerKey)
	if err != nil {
		return err
	}
	p, err = api.svc.RestorePlayer(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "restoring player")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *teamApi) playerAttendance(ctx echo.Context) error {
	p, err := fromContext[team.Player](ctx, ctxPlayerKey)
	if err != nil {
		return err
	}
	pa, err := api.sessionSvc.PlayerAttendance(ctx.Request().Context(), p)
	if err != nil {
		return errors.Wrap(err, "getting player attendance")
	}
	return ctx.JSON(http.StatusOK, pa)
}
