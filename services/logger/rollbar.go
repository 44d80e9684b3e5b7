package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

// RollbarLogger reports to Rollbar and echoes every record to the std logger.
// Reporting is disabled in debug mode or without a token.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && conf.RollbarToken != "")
	return &RollbarLogger{std: std}
}

// log splits the request user out of args (msg | error, map[string]interface{}, account.User),
// reports the rest at level and prints the record.
func (l RollbarLogger) log(level, msg string, args []interface{}) {
	var person *account.User
	items := []interface{}{msg}
	l.std.Printf("[%s] %s", level, msg)

	for _, arg := range args {
		usr, isUser := arg.(account.User)
		switch {
		case !isUser:
			items = append(items, arg)
			l.std.Printf("\t%+v", arg)
		case person == nil && usr.ID != 0:
			person = &usr
		}
	}

	if person != nil {
		rollbar.SetPerson(strconv.Itoa(person.ID), person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, items...)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal reports, waits for pending Rollbar items and exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
