// Package di wires the API dependencies into a dig.Container.
package di

import (
	"io"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/dig"

	echoapi "github.com/practrac/practrac/apps/api/echo"
	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	"github.com/practrac/practrac/core/note"
	"github.com/practrac/practrac/core/practice"
	"github.com/practrac/practrac/core/session"
	"github.com/practrac/practrac/core/team"
	emailsvc "github.com/practrac/practrac/services/email"
	logsvc "github.com/practrac/practrac/services/logger"
	"github.com/practrac/practrac/services/metrics"
	"github.com/practrac/practrac/storage/database"
	sqlxrepos "github.com/practrac/practrac/storage/database/sqlx"
)

type (
	ServerParams struct {
		dig.In
		Logger      core.Logger
		AccessLog   zerolog.Logger `name:"accessLog"`
		DB          *sqlx.DB
		Metrics     *metrics.Metrics
		CoachSvc    coach.Service
		TeamSvc     team.Service
		DrillSvc    drill.Service
		PracticeSvc practice.Service
		SessionSvc  session.Service
		NoteSvc     note.Service
	}
)

// Shutdown is called when a request fails with a core shutdown error.
type Shutdown func()

func newZerolog(conf *core.Config, out io.Writer) zerolog.Logger {
	return logsvc.NewZerolog(out, conf)
}

func newLogger(conf *core.Config, zl zerolog.Logger) core.Logger {
	return logsvc.NewRollbarLogger(zl, conf)
}

func newDBLogger(conf *core.Config, zl zerolog.Logger) core.Logger {
	return logsvc.NewRollbarLogger(zl.With().Str("component", "db").Logger(), conf)
}

func newAccessLog(zl zerolog.Logger) zerolog.Logger {
	return zl.With().Str("component", "http").Logger()
}

func newDB(conf *core.Config) (*sqlx.DB, core.DB, core.DBExecutor, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, nil, errors.Wrap(err, "creating database")
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return db, db, db, nil
}

func newMetrics(conf *core.Config, db *sqlx.DB) (*metrics.Metrics, error) {
	name := conf.Database.Name
	if name == "" {
		name = conf.Database.Engine
	}
	m := metrics.New(conf.Build)
	if err := m.RegisterDB(db.DB, name); err != nil {
		return nil, errors.Wrap(err, "registering DB stats")
	}
	return m, nil
}

func newSessionService(
	db core.DB,
	repo session.Repository,
	teamSvc team.Service,
	coachSvc coach.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
	m *metrics.Metrics,
) session.Service {
	return session.NewService(db, repo, teamSvc, coachSvc, mailSvc, logger, conf, session.WithObserver(m))
}

func newServer(conf *core.Config, shutdown Shutdown, p ServerParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         p.Logger,
		AccessLog:      p.AccessLog,
		Metrics:        p.Metrics,
		DB:             p.DB,
		SignalShutdown: shutdown,
		Deps: echoapi.Deps{
			CoachSvc:    p.CoachSvc,
			TeamSvc:     p.TeamSvc,
			DrillSvc:    p.DrillSvc,
			PracticeSvc: p.PracticeSvc,
			SessionSvc:  p.SessionSvc,
			NoteSvc:     p.NoteSvc,
		},
	})
}

// New returns a new dependency injection dig.Container.
// Logs are written to out.
func New(conf *core.Config, out io.Writer, shutdown func()) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(func() Shutdown { return shutdown }))
	must(c.Provide(func(conf *core.Config) zerolog.Logger { return newZerolog(conf, out) }))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newAccessLog, dig.Name("accessLog")))
	must(c.Provide(newDB))
	must(c.Provide(newMetrics))
	must(c.Provide(emailsvc.NewService))

	must(c.Provide(sqlxrepos.NewCoachRepository, dig.As(new(coach.Repository))))
	must(c.Provide(sqlxrepos.NewTeamRepository, dig.As(new(team.Repository))))
	must(c.Provide(sqlxrepos.NewDrillRepository, dig.As(new(drill.Repository))))
	must(c.Provide(sqlxrepos.NewPracticeRepository, dig.As(new(practice.Repository))))
	must(c.Provide(sqlxrepos.NewSessionRepository, dig.As(new(session.Repository))))
	must(c.Provide(sqlxrepos.NewNoteRepository, dig.As(new(note.Repository))))

	must(c.Provide(coach.NewService))
	must(c.Provide(team.NewService))
	must(c.Provide(drill.NewService))
	must(c.Provide(practice.NewService))
	must(c.Provide(newSessionService))
	must(c.Provide(note.NewService))
	must(c.Provide(newServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, out)
	}
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
