package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
)

const (
	ctxObjectCoachKey    = "object"
	errNoPermsToSetRoles = "not enough rights to set these roles"
	loginRateWindow      = 15 * time.Minute
)

type coachApi struct {
	svc      coach.Service
	validate *validator.Validate
	conf     *core.Config
}

func registerCoachAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc coach.Service, validate *validator.Validate, conf *core.Config) {
	api := coachApi{
		svc:      svc,
		validate: validate,
		conf:     conf,
	}

	cg := g.Group("/coaches")

	// un-authed endpoints, login & password reset attempts share the same budget
	limit := rateLimitMiddleware(conf.Server.LoginRatePer15Minutes, loginRateWindow)
	cg.POST("/login", api.login, limit)
	cg.POST("/signup", api.signup, limit)
	cg.POST("/password-reset", api.resetPassword, limit)
	cg.POST("/password-reset-confirm", api.confirmPasswordReset, limit)

	// authed endpoints
	ag := cg.Group("", auth...)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.GET("/roles", api.queryRoles)
	ag.POST("/register", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxCoachOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *coachApi) create(ctx echo.Context) error {
	var data coach.NewCoach
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoach")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	// ctxCoach cannot set a role > their own max role
	ctxCoach, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}
	if coach.MaxRolePriority(data.Roles) > coach.MaxRolePriority(ctxCoach.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coach")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *coachApi) signup(ctx echo.Context) error {
	if !api.conf.AllowSignup || api.conf.SingleCoach {
		return errSignupDisabled
	}

	var data coach.NewCoach
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoach")
	}
	data.Roles = []string{coach.RoleCoachHead}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating coach")
	}
	token, err := GenerateToken(api.conf, NewClaims(api.conf, c))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token})
}

func (api *coachApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, NewClaims(api.conf, c))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *coachApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil && !core.IsNotFound(err) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *coachApi) confirmPasswordReset(ctx echo.Context) error {
	var data coach.ResetCoachPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetCoachPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *coachApi) query(ctx echo.Context) error {
	filter := new(coach.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.IsActive = boolQueryParam(ctx, "is_active")
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	coaches, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying coaches")
	}
	if coaches == nil {
		coaches = []coach.Coach{}
	}
	return ctx.JSON(http.StatusOK, coaches)
}

func (api *coachApi) me(ctx echo.Context) error {
	c, err := getContextCoach(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *coachApi) retrieve(ctx echo.Context) error {
	c, err := objectCoach(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *coachApi) update(ctx echo.Context) error {
	c, err := objectCoach(ctx)
	if err != nil {
		return err
	}

	var data coach.UpdateCoach
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCoach")
	}

	ctxCoach, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}
	if !ctxCoach.IsAdmin() {
		// `IsActive` and `Roles` can only be changed by admin
		// `Username` and `Email` can only be changed by admin for now
		if data.IsActive != nil || data.Roles != nil || data.Username != "" || data.Email != "" {
			return errHttpForbidden
		}
	}

	if err := data.Validate(c, api.validate, api.svc); err != nil {
		return err
	}

	// ctxCoach cannot set a role > their own max role
	if coach.MaxRolePriority(data.Roles) > coach.MaxRolePriority(ctxCoach.Roles) {
		return core.NewValidationError(nil, core.FieldError{Field: "roles", Error: errNoPermsToSetRoles})
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating coach")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *coachApi) destroy(ctx echo.Context) error {
	c, err := objectCoach(ctx)
	if err != nil {
		return err
	}

	// ctxCoach cannot delete themselves
	ctxCoach, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}
	if c.ID == ctxCoach.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting coach")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *coachApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxCoach cannot delete themselves
	ctxCoach, err := getContextCoach(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context coach")
	}
	for _, id := range query.IDs {
		if id == ctxCoach.ID {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting coaches")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *coachApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, coach.Roles)
}

func (api *coachApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func objectCoach(ctx echo.Context) (coach.Coach, error) {
	c, ok := ctx.Get(ctxObjectCoachKey).(coach.Coach)
	if !ok {
		return coach.Coach{}, errors.New("coach object not found in echo.Context")
	}
	return c, nil
}

// ctxCoachOrAdminMiddleware loads the coach `:id` when it is the authenticated coach or when the latter is an admin.
func ctxCoachOrAdminMiddleware(svc coach.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxCoach, err := getContextCoach(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context coach")
			}

			if ctx.Param("id") == ctxCoach.ID || ctxCoach.IsAdmin() {
				if c, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set(ctxObjectCoachKey, c)
					return next(ctx)
				} else if !core.IsNotFound(err) {
					return errors.Wrap(err, "finding coach by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
