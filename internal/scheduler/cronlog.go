package scheduler

import (
	"fmt"

	logx "courtbot/pkg/logx"
)

// cronLogger adapts logx to cron.Logger for the Recover and
// SkipIfStillRunning wrappers.
type cronLogger struct {
	log logx.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	// SkipIfStillRunning reports skips as "skip".
	if msg == "skip" {
		l.log.Info("schedule skipped: previous run still in flight")
		return
	}
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
