package logsvc

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/formportal/core"
	"github.com/trezcool/formportal/core/session"
	"github.com/trezcool/formportal/core/student"
)

// ZapLogger writes structured logs through a zap.SugaredLogger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a development logger in debug mode and a production one otherwise.
func NewZapLogger(name string, conf *core.Config) (*ZapLogger, error) {
	var zConf zap.Config
	if conf.Debug {
		zConf = zap.NewDevelopmentConfig()
	} else {
		zConf = zap.NewProductionConfig()
	}
	zConf.InitialFields = map[string]interface{}{"env": conf.Env, "build": conf.Build}

	logger, err := zConf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return NewZapLoggerFrom(logger.Named(name)), nil
}

func NewZapLoggerFrom(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

// keysAndValues turns the loosely typed args into zap fields.
func keysAndValues(args []interface{}) []interface{} {
	kv := make([]interface{}, 0, 2*len(args))
	var n int
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			kv = append(kv, zap.Error(a))
		case session.User:
			kv = append(kv, zap.String("rollNumber", a.RollNumber))
		case student.Student:
			kv = append(kv, zap.String("rollNumber", a.RollNumber))
		case map[string]interface{}:
			for k, v := range a {
				kv = append(kv, zap.Any(k, v))
			}
		case zapcore.Field:
			kv = append(kv, a)
		default:
			n++
			kv = append(kv, zap.Any(fmt.Sprintf("arg%d", n), a))
		}
	}
	return kv
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues(args)...)
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, keysAndValues(args)...)
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues(args)...)
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues(args)...)
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues(args)...)
}

func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
