package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/note"
	"github.com/practrac/practrac/core/team"
)

type noteApi struct {
	svc      note.Service
	teamSvc  team.Service
	validate *validator.Validate
}

func registerNoteAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc note.Service, teamSvc team.Service, validate *validator.Validate) {
	api := noteApi{
		svc:      svc,
		teamSvc:  teamSvc,
		validate: validate,
	}

	tg := g.Group("/teams/:id/notes", withAuth(auth, teamMiddleware(teamSvc))...)
	tg.GET("", api.query)
	tg.POST("", api.create)

	dg := g.Group("/notes/:id", withAuth(auth, api.noteMiddleware)...)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

func (api *noteApi) noteMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		n, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		if _, err := accessibleTeam(ctx, api.teamSvc, n.TeamID); err != nil {
			if errors.Cause(err) == team.ErrNotFound {
				return note.ErrNotFound
			}
			return err
		}
		ctx.Set(ctxNoteKey, n)
		return next(ctx)
	}
}

func (api *noteApi) query(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}

	filter := new(note.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.TeamID = t.ID
	filter.PlayerID = core.CleanString(filter.PlayerID, true /* lower */)
	filter.SessionID = core.CleanString(filter.SessionID, true /* lower */)
	filter.PracticeID = core.CleanString(filter.PracticeID, true /* lower */)
	ordering := new(Ordering)
	ordering.Bind(ctx)

	notes, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	if notes == nil {
		notes = []note.Note{}
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *noteApi) create(ctx echo.Context) error {
	t, err := fromContext[team.Team](ctx, ctxTeamKey)
	if err != nil {
		return err
	}
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	var data note.NewNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNote")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err := api.svc.Create(ctx.Request().Context(), c, t, data)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *noteApi) retrieve(ctx echo.Context) error {
	n, err := fromContext[note.Note](ctx, ctxNoteKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) update(ctx echo.Context) error {
	n, err := fromContext[note.Note](ctx, ctxNoteKey)
	if err != nil {
		return err
	}

	var data note.UpdateNote
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateNote")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	n, err = api.svc.Update(ctx.Request().Context(), n, data)
	if err != nil {
		return errors.Wrap(err, "updating note")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *noteApi) destroy(ctx echo.Context) error {
	n, err := fromContext[note.Note](ctx, ctxNoteKey)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), n); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.NoContent(http.StatusNoContent)
}
