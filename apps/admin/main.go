package main

import (
	"fmt"
	"os"

	"github.com/practrac/practrac/core"
	"github.com/practrac/practrac/core/coach"
	"github.com/practrac/practrac/core/drill"
	emailsvc "github.com/practrac/practrac/services/email"
	logsvc "github.com/practrac/practrac/services/logger"
	"github.com/practrac/practrac/storage/database"
	sqlxrepos "github.com/practrac/practrac/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	zl := logsvc.NewZerolog(os.Stderr, conf).With().Str("component", "admin").Logger()
	logger := logsvc.NewRollbarLogger(zl, conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:       db,
		coachSvc: coach.NewService(db, sqlxrepos.NewCoachRepository(db), emailsvc.NewService(conf, logger), conf),
		drillSvc: drill.NewService(db, sqlxrepos.NewDrillRepository(db)),
		validate: newValidator(),
		logger:   logger,
		out:      os.Stdout,
	}
	err = cli.run(os.Args[1:])
	_ = db.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
