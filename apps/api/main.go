package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/ocuweb/classpoints/apps/api/echo"
	"github.com/ocuweb/classpoints/core"
	"github.com/ocuweb/classpoints/core/attendance"
	"github.com/ocuweb/classpoints/core/report"
	"github.com/ocuweb/classpoints/core/student"
	emailsvc "github.com/ocuweb/classpoints/services/email"
	logsvc "github.com/ocuweb/classpoints/services/logger"
	"github.com/ocuweb/classpoints/storage/cache"
	"github.com/ocuweb/classpoints/storage/database"
	"github.com/ocuweb/classpoints/storage/gist"
	"github.com/ocuweb/classpoints/storage/memory"
	"github.com/ocuweb/classpoints/storage/twotier"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewConsoleLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile))
	} else {
		rl := logsvc.NewRollbarLogger(
			log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
			conf,
		)
		rl.Enable(true)
		logger = rl
	}

	// set up the record store: local cache over the configured remote
	localCache, err := cache.NewBadgerCache(conf.CacheDir, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening local cache: %v", err), err)
	}
	remote, attRepo := setUpRemote(conf, logger)
	store := twotier.NewStore(remote, localCache, logger, conf)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing record store: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	studentSvc := student.NewService(store, student.DefaultCatalog(), logger, conf)
	attSvc := attendance.NewService(attRepo, newSchedule(conf, logger), logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	// =========================================================================
	// Start Scheduled Jobs
	//
	// - push pending record writes to the remote store every minute
	// - email the instructor a class summary after each class day

	scheduler := gocron.NewScheduler(time.UTC)
	if _, err := scheduler.Every(1).Minute().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.SaveTimeout)
		defer cancel()
		if err := store.Flush(ctx); err != nil {
			logger.Warn(fmt.Sprintf("periodic flush: %v", err), err)
		}
	}); err != nil {
		logger.Fatal(fmt.Sprintf("scheduling periodic flush: %v", err), err)
	}
	if conf.InstructorEmail.Address != "" {
		if _, err := scheduler.Every(1).Day().At("18:00").Do(func() {
			sendDailySummary(studentSvc, attSvc, mailSvc, conf, logger)
		}); err != nil {
			logger.Fatal(fmt.Sprintf("scheduling daily summary: %v", err), err)
		}
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		StudentSvc:    studentSvc,
		AttendanceSvc: attSvc,
		Validate:      validate,
		Translator:    translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err := server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRemote picks the remote record store: Gists when a master gist is
// configured, Postgres when not, an in-memory store as the local-dev default.
func setUpRemote(conf *core.Config, logger core.Logger) (student.Gateway, attendance.Repository) {
	if conf.Gist.MasterGistID != "" {
		// attendance stays local-relational; the gist deployment keeps it in
		// the same Postgres the admin CLI uses, or in memory for dev
		if db, err := openDB(conf); err == nil {
			return gist.NewGateway(conf, logger), database.NewAttendanceRepository(db)
		}
		logger.Warn("no database reachable, keeping attendance in memory")
		return gist.NewGateway(conf, logger), memory.NewAttendanceRepository()
	}

	db, err := openDB(conf)
	if err != nil {
		if conf.Debug {
			logger.Warn(fmt.Sprintf("no database reachable, using in-memory storage: %v", err), err)
			return memory.NewStudentGateway(conf.ClassPin), memory.NewAttendanceRepository()
		}
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	gw := database.NewStudentGateway(db, logger)
	seedClassPin(gw, conf, logger)
	return gw, database.NewAttendanceRepository(db)
}

// seedClassPin sets the shared PIN on a fresh database from config; an
// already-set pin is left alone.
func seedClassPin(gw *database.StudentGateway, conf *core.Config, logger core.Logger) {
	if conf.ClassPin == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), conf.SaveTimeout)
	defer cancel()

	cfg, err := gw.LoadConfig(ctx)
	if err != nil {
		logger.Warn(fmt.Sprintf("loading class config: %v", err), err)
		return
	}
	if cfg.ClassPin != "" {
		return
	}
	if err := gw.SetClassPin(ctx, conf.ClassPin); err != nil {
		logger.Warn(fmt.Sprintf("seeding class pin: %v", err), err)
	}
}

func openDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func sendDailySummary(
	studentSvc *student.Service,
	attSvc *attendance.Service,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.SaveTimeout)
	defer cancel()

	board, err := studentSvc.Leaderboard(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("building daily summary: %v", err), err)
		return
	}
	roster := make([]string, 0, len(board))
	for _, e := range board {
		roster = append(roster, e.StudentID)
	}
	ov, err := attSvc.Overview(ctx, roster)
	if err != nil {
		logger.Error(fmt.Sprintf("building daily summary: %v", err), err)
		return
	}
	mailSvc.SendMessages(report.BuildDailySummary(conf.InstructorEmail, time.Now().UTC(), board, ov))
}

func newSchedule(conf *core.Config, logger core.Logger) attendance.Schedule {
	termStart, err := time.Parse("2006-01-02", conf.TermStart)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing termStart: %v", err), err)
	}
	termEnd, err := time.Parse("2006-01-02", conf.TermEnd)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing termEnd: %v", err), err)
	}
	return attendance.NewSchedule(termStart, termEnd, conf.Holidays)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
