package main

import (
	"log"
	"os"

	"github.com/darasa-app/darasa/core"
	emailsvc "github.com/darasa-app/darasa/services/email"
	"github.com/darasa-app/darasa/storage/database"
	sqlxrepos "github.com/darasa-app/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:        db,
		conf:      conf,
		usrRepo:   sqlxrepos.NewUserRepository(db),
		crsRepo:   sqlxrepos.NewCourseRepository(db),
		sessRepo:  sqlxrepos.NewLiveClassRepository(db),
		notifRepo: sqlxrepos.NewNotificationRepository(db),
		mailSvc:   emailsvc.NewConsoleService(conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
