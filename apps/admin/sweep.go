package main

import (
	"context"
	"fmt"
	"time"

	logsvc "github.com/darasa-app/darasa/services/logger"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/liveclass"
)

// sweep runs the live-class starting sweep once, with emails printed to the
// console. Useful for inspecting what the sweeper would do right now.
func (cli *commandLine) sweep() error {
	log := logsvc.NewRollbarLogger(logger, cli.conf)
	log.Enable(false)

	core.ParseEmailTemplates(cli.conf, log)

	sweep := liveclass.NewSweep(
		cli.sessRepo,
		cli.crsRepo,
		cli.usrRepo,
		cli.notifRepo,
		cli.mailSvc,
		cli.conf,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.Sweep.RunTimeout)
	defer cancel()

	summary := sweep.Run(ctx, time.Now().UTC())
	fmt.Println(summary.String())
	return nil
}
