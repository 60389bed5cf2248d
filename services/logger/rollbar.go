package logsvc

import (
	"fmt"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/session"
	"github.com/trezcool/formportal/core/student"
)

var (
	setPersonFunc   = func(id, username string) { rollbar.SetPerson(id, username, "") } // mockable
	clearPersonFunc = func() { rollbar.ClearPerson() }                                  // mockable
)

// RollbarLogger reports to rollbar and mirrors every entry to a std logger.
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
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// personOf reports whom an entry is about: a registered student or a portal user,
// both identified by roll number.
func personOf(arg interface{}) (id, name string, ok bool) {
	switch a := arg.(type) {
	case student.Student:
		return a.RollNumber, a.Name, true
	case *student.Student:
		if a != nil {
			return a.RollNumber, a.Name, true
		}
	case session.User:
		return a.RollNumber, a.Name, true
	}
	return "", "", false
}

// prepare turns args into rollbar's shape: the message, the first error and a single
// extras map. The first student found becomes the rollbar person; other args land in
// the extras as argN.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		personSet bool
		firstErr  error
		extras    map[string]interface{}
	)
	addExtra := func(k string, v interface{}) {
		if extras == nil {
			extras = make(map[string]interface{})
		}
		extras[k] = v
	}

	for i, arg := range args {
		if id, name, ok := personOf(arg); ok {
			if !personSet {
				setPersonFunc(id, name)
				personSet = true
			} else {
				addExtra(fmt.Sprintf("arg%d", i), id)
			}
			continue
		}
		switch a := arg.(type) {
		case error:
			if firstErr == nil {
				firstErr = a
				continue
			}
			addExtra(fmt.Sprintf("arg%d", i), a.Error())
		case map[string]interface{}:
			for k, v := range a {
				addExtra(k, v)
			}
		default:
			addExtra(fmt.Sprintf("arg%d", i), a)
		}
	}
	if !personSet {
		clearPersonFunc()
	}

	rbArgs := []interface{}{msg}
	if firstErr != nil {
		rbArgs = append(rbArgs, firstErr)
	}
	if extras != nil {
		rbArgs = append(rbArgs, extras)
	}
	return rbArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

// Fatal waits for pending reports to be sent before exiting.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
