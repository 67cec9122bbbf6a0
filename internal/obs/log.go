package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var loggerOnce = sync.OnceValue(func() *log.Logger {
	return log.New(os.Stdout, "", 0)
})

// Logger returns the process-wide line logger. Output is one JSON object
// per line with no prefix or flags, so entries stay machine-parseable.
func Logger() *log.Logger {
	return loggerOnce()
}

// LogRequest marshals the entry as a single JSON log line. Marshal failures
// are reported as an error-level line rather than dropped silently.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
