package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/liveclass"
	emailsvc "github.com/darasa-app/darasa/services/email"
	locksvc "github.com/darasa-app/darasa/services/lock"
	logsvc "github.com/darasa-app/darasa/services/logger"
	"github.com/darasa-app/darasa/storage/database"
	sqlxrepos "github.com/darasa-app/darasa/storage/database/sqlx"
)

// sweepLockKey guards the starting sweep across sweeper replicas.
const sweepLockKey = "darasa:sweep:live-class-starting"

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "SWEEPER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	core.ParseEmailTemplates(conf, logger)

	lock := locksvc.NewRedisRunLock(conf, sweepLockKey)
	defer func() {
		if err = lock.Close(); err != nil {
			logger.Error("failed to close run lock", err)
		}
	}()

	sweep := liveclass.NewSweep(
		sqlxrepos.NewLiveClassRepository(db),
		sqlxrepos.NewCourseRepository(db),
		sqlxrepos.NewUserRepository(db),
		sqlxrepos.NewNotificationRepository(db),
		mailSvc,
		conf,
		logger,
	)

	// =========================================================================
	// Run

	logger.Info(fmt.Sprintf("Sweeper initializing : version %q : interval %v : lead %v",
		conf.Build, conf.Sweep.Interval, conf.Sweep.Lead))
	defer logger.Info("Sweeper stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(conf.Sweep.Interval)
	defer ticker.Stop()

	// sweep once at startup, then on every tick
	runSweep(sweep, lock, conf, logger)
	for {
		select {
		case <-ticker.C:
			runSweep(sweep, lock, conf, logger)
		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: shutting down", sig))
			return
		}
	}
}

// runSweep executes one guarded sweep. The run lock makes concurrent sweeper
// replicas mutually exclusive; on contention the tick is skipped, the next one
// will catch any session still inside the lead window.
func runSweep(sweep *liveclass.Sweep, lock *locksvc.RunLock, conf *core.Config, logger core.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Sweep.RunTimeout)
	defer cancel()

	ok, err := lock.Acquire(ctx, conf.Sweep.LockTTL)
	if err != nil {
		logger.Error(fmt.Sprintf("acquiring run lock: %v", err), err)
		return
	}
	if !ok {
		logger.Info("run lock held elsewhere; skipping tick")
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.Error(fmt.Sprintf("releasing run lock: %v", err), err)
		}
	}()

	summary := sweep.Run(ctx, time.Now().UTC())
	logger.Info(summary.String())
}
