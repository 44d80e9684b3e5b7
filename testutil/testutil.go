// Package testutil sets up in-memory services for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/core/auth"
	"github.com/capitalizelearning/CapitalizeWebsite/core/lesson"
	"github.com/capitalizelearning/CapitalizeWebsite/core/school"
	cachesvc "github.com/capitalizelearning/CapitalizeWebsite/services/cache"
	emailsvc "github.com/capitalizelearning/CapitalizeWebsite/services/email"
	storagesvc "github.com/capitalizelearning/CapitalizeWebsite/services/storage"
	inmemdb "github.com/capitalizelearning/CapitalizeWebsite/storage/database/inmem"
)

var initOnce sync.Once

// LogRecord is a record kept by Logger.
type LogRecord struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger keeps every record in memory.
type Logger struct {
	mu      sync.Mutex
	records []LogRecord
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.records = append(l.records, LogRecord{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { panic(fmt.Sprintf("FATAL: %s", msg)) }

// Records returns the records of the given level.
func (l *Logger) Records(level string) []LogRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	recs := make([]LogRecord, 0)
	for _, r := range l.records {
		if r.Level == level {
			recs = append(recs, r)
		}
	}
	return recs
}

// Env holds a fully wired set of in-memory services.
type Env struct {
	Conf   *core.Config
	Logger *Logger
	DB     *inmemdb.DB
	Mail   *emailsvc.ConsoleServiceMock
	Ledger account.InviteLedger
	Media  interface {
		lesson.MediaStore
		File(key string) ([]byte, bool)
	}

	AccountRepo account.Repository
	SchoolRepo  school.Repository
	LessonRepo  lesson.Repository

	AccountSvc *account.Service
	SchoolSvc  *school.Service
	LessonSvc  *lesson.Service
	TokenSvc   *auth.TokenService

	Validate   *validator.Validate
	Translator ut.Translator
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	logger := new(Logger)
	initOnce.Do(func() {
		core.ParseEmailTemplates(logger)
		account.LoadCommonPasswords(logger)
	})

	conf := core.NewTestConfig()
	db := inmemdb.Open()
	env := &Env{
		Conf:        conf,
		Logger:      logger,
		DB:          db,
		Mail:        emailsvc.NewConsoleServiceMock(conf),
		Ledger:      cachesvc.NewMemoryLedger(),
		Media:       storagesvc.NewMemoryStore("http://media.test"),
		AccountRepo: inmemdb.NewAccountRepository(db),
		SchoolRepo:  inmemdb.NewSchoolRepository(db),
		LessonRepo:  inmemdb.NewLessonRepository(db),
		Validate:    validator.New(),
		Translator:  core.NewTranslator(),
	}
	env.AccountSvc = account.NewService(env.AccountRepo, env.Mail, env.Ledger, logger, conf)
	env.SchoolSvc = school.NewService(env.SchoolRepo, env.AccountSvc)
	env.LessonSvc = lesson.NewService(env.LessonRepo, env.Media, env.SchoolSvc)
	env.TokenSvc = auth.NewTokenService(env.AccountSvc, conf)

	core.InitValidators(env.Validate, env.Translator)
	account.InitValidators(env.Validate, env.Translator)
	lesson.InitValidators(env.Validate, env.Translator)
	return env
}

// CreateUser inserts an account straight into the repository.
func CreateUser(t *testing.T, repo account.Repository, uname, email, pwd string, isActive, isStaff bool) account.User {
	t.Helper()

	usr := account.User{
		Username:   uname,
		Email:      email,
		FirstName:  "First",
		LastName:   "Last",
		IsActive:   isActive,
		IsStaff:    isStaff,
		DateJoined: time.Now().UTC(),
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	accountType := account.AccountStudent
	if isStaff {
		accountType = account.AccountAdmin
	}
	usr, _, err := repo.CreateAccount(
		context.Background(), usr, account.Profile{AccountType: accountType}, account.DefaultPreferences(),
	)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
