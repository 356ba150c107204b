package echoapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/drill"
)

// maxDiagramSize bounds the body of a diagram upload.
const maxDiagramSize = 1 << 20

type drillApi struct {
	svc      drill.Service
	validate *validator.Validate
}

func registerDrillAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc drill.Service, validate *validator.Validate) {
	api := drillApi{
		svc:      svc,
		validate: validate,
	}

	dg := g.Group("/drills", auth...)
	dg.GET("", api.query)
	dg.POST("", api.create)
	dg.GET("/categories", api.queryCategories)

	// detail endpoints
	og := dg.Group("/:id", api.drillMiddleware)
	og.GET("", api.retrieve)
	og.PUT("", api.update)
	og.DELETE("", api.destroy)
	og.POST("/restore", api.restore)
	og.PUT("/diagram", api.setDiagram)
	og.POST("/videos", api.addVideo)
	og.DELETE("/videos/:videoId", api.deleteVideo)
}

// drillMiddleware loads the drill `:id` when it belongs to the context coach or when the latter is an admin.
func (api *drillApi) drillMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := getContextCoach(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context coach")
		}
		d, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return err
		}
		if !c.CanManage(d.CoachID) {
			return drill.ErrNotFound
		}
		ctx.Set(ctxDrillKey, d)
		return next(ctx)
	}
}

func (api *drillApi) query(ctx echo.Context) error {
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	filter := new(drill.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.CoachID = ownerFilter(c, filter.CoachID)
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	drills, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying drills")
	}
	if drills == nil {
		drills = []drill.Drill{}
	}
	return ctx.JSON(http.StatusOK, drills)
}

func (api *drillApi) queryCategories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, drill.Categories)
}

func (api *drillApi) create(ctx echo.Context) error {
	c, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}

	var data drill.NewDrill
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDrill")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.Create(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating drill")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *drillApi) retrieve(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *drillApi) update(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}

	var data drill.NewDrill
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDrill")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err = api.svc.Update(ctx.Request().Context(), d, data)
	if err != nil {
		return errors.Wrap(err, "updating drill")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *drillApi) destroy(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}
	if _, err := api.svc.Deactivate(ctx.Request().Context(), d); err != nil {
		return errors.Wrap(err, "deactivating drill")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *drillApi) restore(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}
	d, err = api.svc.Restore(ctx.Request().Context(), d)
	if err != nil {
		return errors.Wrap(err, "restoring drill")
	}
	return ctx.JSON(http.StatusOK, d)
}

// setDiagram stores the request body as the drill's court diagram.
func (api *drillApi) setDiagram(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxDiagramSize+1))
	if err != nil {
		return errors.Wrap(err, "reading diagram")
	}
	if len(body) > maxDiagramSize {
		return echo.ErrStatusRequestEntityTooLarge
	}
	if !json.Valid(body) {
		return core.NewValidationError(nil, core.FieldError{Field: "diagram", Error: "invalid JSON document"})
	}

	d, err = api.svc.SetDiagram(ctx.Request().Context(), d, body)
	if err != nil {
		return errors.Wrap(err, "setting diagram")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *drillApi) addVideo(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}

	var data drill.NewVideo
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVideo")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.AddVideo(ctx.Request().Context(), d, data)
	if err != nil {
		return errors.Wrap(err, "adding video")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *drillApi) deleteVideo(ctx echo.Context) error {
	d, err := fromContext[drill.Drill](ctx, ctxDrillKey)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteVideo(ctx.Request().Context(), d, ctx.Param("videoId")); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.NoContent(http.StatusNoContent)
}
