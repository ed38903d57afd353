package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/student"
	emailsvc "github.com/ocuweb/classpoints/services/email"
	logsvc "github.com/ocuweb/classpoints/services/logger"
	"github.com/ocuweb/classpoints/storage/database"
	"github.com/ocuweb/classpoints/storage/gist"
	"github.com/ocuweb/classpoints/storage/memory"
)

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger := logsvc.NewConsoleLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile))

	// the CLI talks straight to the remote store; no local cache tier
	var (
		gw      student.Gateway
		attRepo attendance.Repository
		db      *sqlx.DB
		err     error
	)
	switch {
	case conf.Gist.MasterGistID != "":
		gw = gist.NewGateway(conf, logger)
		attRepo = memory.NewAttendanceRepository()
		if db, err = database.Open(conf); err == nil && db.Ping() == nil {
			attRepo = database.NewAttendanceRepository(db)
		}
	default:
		if db, err = database.Open(conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		if err = db.Ping(); err != nil {
			logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
		}
		gw = database.NewStudentGateway(db, logger)
		attRepo = database.NewAttendanceRepository(db)
	}
	if db != nil {
		defer func() { _ = db.Close() }()
	}

	termStart, err := time.Parse("2006-01-02", conf.TermStart)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing termStart: %v", err), err)
	}
	termEnd, err := time.Parse("2006-01-02", conf.TermEnd)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing termEnd: %v", err), err)
	}

	cli := commandLine{
		conf:       conf,
		studentSvc: student.NewService(gw, student.DefaultCatalog(), logger, conf),
		attSvc: attendance.NewService(
			attRepo,
			attendance.NewSchedule(termStart, termEnd, conf.Holidays),
			logger,
		),
		mailSvc: emailsvc.NewConsoleService(conf),
		db:      db,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
