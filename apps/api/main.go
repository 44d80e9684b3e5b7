package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	"github.com/capitalizelearning/CapitalizeWebsite/apps/api/di"
	echoapi "github.com/capitalizelearning/CapitalizeWebsite/apps/api/echo"
	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
)

type app struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	DBLogger   core.Logger `name:"dbLogger"`
	DB         *sqlx.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Server     *echoapi.Server
}

func main() {
	if err := di.New().Invoke(run); err != nil {
		log.Fatal(err)
	}
}

// run serves the API until it fails or a shutdown signal drains it.
func run(a app) error {
	a.Logger.Info(fmt.Sprintf("capitalize api %s starting (env %s)", a.Conf.Build, a.Conf.Env))
	defer a.Logger.Info("capitalize api stopped")
	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Error("closing database", err)
		}
	}()

	core.InitValidators(a.Validate, a.Translator)
	account.InitValidators(a.Validate, a.Translator)
	lesson.InitValidators(a.Validate, a.Translator)
	core.ParseEmailTemplates(a.Logger)
	account.LoadCommonPasswords(a.Logger)

	// pprof and expvar on the default mux
	expvar.NewString("build").Set(a.Conf.Build)
	expvar.NewString("env").Set(a.Conf.Env)
	go func() {
		if err := http.ListenAndServe(a.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			a.Logger.Error("debug server closed", err)
		}
	}()

	go a.Server.Start()

	select {
	case err := <-a.Server.Errors():
		return err
	case sig := <-a.Server.ShutdownSignal():
		a.Logger.Info(fmt.Sprintf("received %v, draining requests", sig))

		ctx, cancel := context.WithTimeout(context.Background(), a.Conf.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Logger.Error("graceful shutdown failed, closing", err)
			if err = a.Server.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
