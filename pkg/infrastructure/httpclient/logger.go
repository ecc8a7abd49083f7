package httpclient

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger   zerolog.Logger
	redactor *strings.Replacer
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Error(), msg, keysAndValues)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Info(), msg, keysAndValues)
}

// retryablehttp logs every attempt at Debug; keep that at trace.
func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Trace(), msg, keysAndValues)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.event(l.logger.Warn(), msg, keysAndValues)
}

func (l *leveledLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		switch v := kv[i+1].(type) {
		case error:
			e = e.Str(key, l.redact(v.Error()))
		case string:
			e = e.Str(key, l.redact(v))
		case fmt.Stringer:
			e = e.Str(key, l.redact(v.String()))
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(l.redact(msg))
}

func (l *leveledLogger) redact(s string) string {
	if l.redactor == nil {
		return s
	}
	return l.redactor.Replace(s)
}
