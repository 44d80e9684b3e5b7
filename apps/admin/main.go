package main

import (
	"context"
	"log"
	"os"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	cachesvc "github.com/capitalizelearning/CapitalizeWebsite/services/cache"
	emailsvc "github.com/capitalizelearning/CapitalizeWebsite/services/email"
	logsvc "github.com/capitalizelearning/CapitalizeWebsite/services/logger"
	"github.com/capitalizelearning/CapitalizeWebsite/storage/database"
	sqlxrepos "github.com/capitalizelearning/CapitalizeWebsite/storage/database/sqlx"
)

func main() {
	ctx := context.Background()
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)

	// set up DB
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(stdLogger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}
	var ledger account.InviteLedger = cachesvc.NewMemoryLedger()
	if conf.Redis.Addr != "" {
		ledger = cachesvc.NewRedisLedger(cachesvc.NewRedisClient(conf))
	}
	core.ParseEmailTemplates(logger)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		accSvc: account.NewService(sqlxrepos.NewAccountRepository(db), mailSvc, ledger, logger, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
