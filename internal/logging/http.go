package logging

import (
	"fmt"
	"strings"

	"github.com/caarlos0/log"
)

// HTTPLogger adapts a *log.Logger to retryablehttp's LeveledLogger.
//
// retryablehttp logs every request at debug level, so in normal runs
// nothing shows up unless the level is lowered.
type HTTPLogger struct {
	L *log.Logger
}

func (h HTTPLogger) Error(msg string, keysAndValues ...interface{}) {
	h.L.Error(format(msg, keysAndValues))
}

func (h HTTPLogger) Info(msg string, keysAndValues ...interface{}) {
	h.L.Info(format(msg, keysAndValues))
}

func (h HTTPLogger) Debug(msg string, keysAndValues ...interface{}) {
	h.L.Debug(format(msg, keysAndValues))
}

func (h HTTPLogger) Warn(msg string, keysAndValues ...interface{}) {
	h.L.Warn(format(msg, keysAndValues))
}

// format renders key/value pairs as "msg key=value key=value".
func format(msg string, keysAndValues []interface{}) string {
	if len(keysAndValues) == 0 {
		return msg
	}

	var b strings.Builder
	b.WriteString(msg)

	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		var value interface{} = "(missing)"
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}

		fmt.Fprintf(&b, " %s=%v", key, value)
	}

	return b.String()
}
