package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/silabo/core"
	"github.com/trezcool/silabo/core/user"
)

// RollbarLogger reports through Rollbar and echoes everything to a std logger.
// Trailing args may carry errors, custom data maps and the acting user.User;
// the user is attached to the Rollbar item as the person.
type RollbarLogger struct {
	std     *log.Logger
	enabled bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) {
	l.enabled = enabled
	rollbar.SetEnabled(enabled)
}

// extractPerson pulls the first user.User out of args, sets it as the Rollbar
// person and returns the remaining args prefixed with msg.
func (l *RollbarLogger) extractPerson(msg string, args []interface{}) []interface{} {
	rest := make([]interface{}, 0, len(args)+1)
	rest = append(rest, msg)

	var found bool
	for _, arg := range args {
		usr, ok := arg.(user.User)
		if ok && !found {
			rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
			found = true
			continue
		}
		rest = append(rest, arg)
	}
	if !found {
		rollbar.ClearPerson()
	}
	return rest
}

func (l *RollbarLogger) log(report func(...interface{}), msg string, args []interface{}) {
	report(l.extractPerson(msg, args)...)
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.Debug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.Info, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.Warning, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.Error, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}
