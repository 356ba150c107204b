package echoapi

import (
	"context"
	"fmt"
	"net"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/rs/zerolog"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/note"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
	"github.com/practrac/practrac/services/metrics"
	"github.com/practrac/practrac/services/telemetry"
	"github.com/practrac/practrac/storage/database"
)

type (
	Deps struct {
		CoachSvc    coach.Service
		TeamSvc     team.Service
		DrillSvc    drill.Service
		PracticeSvc practice.Service
		SessionSvc  session.Service
		NoteSvc     note.Service
	}

	Options struct {
		Conf      *core.Config
		Logger    core.Logger
		AccessLog zerolog.Logger
		Metrics   *metrics.Metrics // optional
		DB        core.DB          // optional, pinged by /health
		// SignalShutdown is called when a handler fails with a core shutdown error.
		SignalShutdown func()
		Deps
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(opts, "opts"),
		vala.IsNotNil(opts.Conf, "opts.Conf"),
		vala.IsNotNil(opts.Logger, "opts.Logger"),
		vala.IsNotNil(opts.CoachSvc, "opts.CoachSvc"),
		vala.IsNotNil(opts.TeamSvc, "opts.TeamSvc"),
		vala.IsNotNil(opts.DrillSvc, "opts.DrillSvc"),
		vala.IsNotNil(opts.PracticeSvc, "opts.PracticeSvc"),
		vala.IsNotNil(opts.SessionSvc, "opts.SessionSvc"),
		vala.IsNotNil(opts.NoteSvc, "opts.NoteSvc"),
	).CheckAndPanic()

	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}

	s := &server{
		opts:       opts,
		app:        echo.New(),
		validate:   validator.New(),
		translator: core.NewTranslator(),
	}
	core.InitValidators(s.validate, s.translator)
	coach.InitValidators(s.validate, s.translator)
	team.InitValidators(s.validate, s.translator)
	drill.InitValidators(s.validate, s.translator)
	session.InitValidators(s.validate, s.translator)

	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.translator, s.opts.SignalShutdown)
	s.app.IPExtractor = ipExtractor(conf.Server.TrustedProxies, s.opts.Logger)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(requestLoggerMiddleware(s.opts.AccessLog))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.opts.Metrics != nil {
		s.app.Use(s.opts.Metrics.EchoMiddleware())
	}
	if conf.Server.Tracing {
		s.app.Use(telemetry.EchoMiddleware())
	}

	s.app.GET("/", home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	if conf.SingleCoach {
		v1.Use(singleCoachMiddleware(conf, s.opts.CoachSvc))
	}
	auth := []echo.MiddlewareFunc{jwtMiddleware(conf), contextCoachMiddleware(s.opts.CoachSvc)}

	registerCoachAPI(v1, auth, s.opts.CoachSvc, s.validate, conf)
	registerTeamAPI(v1, auth, s.opts.TeamSvc, s.opts.SessionSvc, s.validate)
	registerDrillAPI(v1, auth, s.opts.DrillSvc, s.validate)
	registerPracticeAPI(v1, auth, s.opts.PracticeSvc, s.opts.TeamSvc, s.opts.SessionSvc, s.validate)
	registerSessionAPI(v1, auth, s.opts.SessionSvc, s.opts.TeamSvc, s.validate)
	registerNoteAPI(v1, auth, s.opts.NoteSvc, s.opts.TeamSvc, s.validate)
}

// ipExtractor only believes X-Forwarded-For when the connection comes from one of the trusted proxies.
func ipExtractor(trustedProxies []string, logger core.Logger) echo.IPExtractor {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn(fmt.Sprintf("ignoring trusted proxy %q: %v", cidr, err))
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	if len(opts) == 3 {
		return echo.ExtractIPDirect()
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Addr)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to PracTrac API!")
}

func (s *server) health(ctx echo.Context) error {
	status, code := "ok", http.StatusOK
	if s.opts.DB != nil {
		if err := database.StatusCheck(ctx.Request().Context(), s.opts.DB); err != nil {
			status, code = "db not ready", http.StatusServiceUnavailable
		}
	}
	return ctx.JSON(code, echo.Map{
		"status": status,
		"build":  s.opts.Conf.Build,
	})
}
