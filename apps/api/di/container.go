// Package di wires the API dependencies with a dig container.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/capitalizelearning/CapitalizeWebsite/apps/api/echo"
	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/auth"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
	cachesvc "github.com/capitalizelearning/CapitalizeWebsite/services/cache"
	emailsvc "github.com/capitalizelearning/CapitalizeWebsite/services/email"
	logsvc "github.com/capitalizelearning/CapitalizeWebsite/services/logger"
	storagesvc "github.com/capitalizelearning/CapitalizeWebsite/services/storage"
	"github.com/capitalizelearning/CapitalizeWebsite/storage/database"
	sqlxrepos "github.com/capitalizelearning/CapitalizeWebsite/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	}
	return emailsvc.NewSendgridService(conf)
}

func newInviteLedger(conf *core.Config, logger core.Logger) account.InviteLedger {
	if conf.Redis.Addr == "" {
		logger.Warn("redis.addr is not set, using the in-memory invite ledger")
		return cachesvc.NewMemoryLedger()
	}
	return cachesvc.NewRedisLedger(cachesvc.NewRedisClient(conf))
}

func newMediaStore(conf *core.Config, logger core.Logger) lesson.MediaStore {
	if conf.Storage.SupabaseURL == "" {
		logger.Warn("storage.supabaseURL is not set, lesson media is kept in memory")
		return storagesvc.NewMemoryStore(conf.FrontendBaseURL + "/media")
	}
	return storagesvc.NewSupabaseStore(conf)
}

func newAccountRepository(db *sqlx.DB) account.Repository { return sqlxrepos.NewAccountRepository(db) }
func newSchoolRepository(db *sqlx.DB) school.Repository   { return sqlxrepos.NewSchoolRepository(db) }
func newLessonRepository(db *sqlx.DB) lesson.Repository   { return sqlxrepos.NewLessonRepository(db) }

func newSchoolService(repo school.Repository, accSvc *account.Service) *school.Service {
	return school.NewService(repo, accSvc)
}

func newLessonService(repo lesson.Repository, media lesson.MediaStore, schSvc *school.Service) *lesson.Service {
	return lesson.NewService(repo, media, schSvc)
}

func newTokenService(accSvc *account.Service, conf *core.Config) *auth.TokenService {
	return auth.NewTokenService(accSvc, conf)
}

type depsParam struct {
	dig.In
	AccountSvc *account.Service
	SchoolSvc  *school.Service
	LessonSvc  *lesson.Service
	TokenSvc   *auth.TokenService
	Validate   *validator.Validate
	Translator ut.Translator
}

func newDeps(p depsParam) *echoapi.Deps {
	return &echoapi.Deps{
		AccountSvc: p.AccountSvc,
		SchoolSvc:  p.SchoolSvc,
		LessonSvc:  p.LessonSvc,
		TokenSvc:   p.TokenSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
	}
}

func newValidator() *validator.Validate {
	return validator.New()
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newInviteLedger))
	must(c.Provide(newMediaStore))
	must(c.Provide(newAccountRepository))
	must(c.Provide(newSchoolRepository))
	must(c.Provide(newLessonRepository))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(account.NewService))
	must(c.Provide(newSchoolService))
	must(c.Provide(newLessonService))
	must(c.Provide(newTokenService))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
