package pkg

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// VerboseMode is a global switch to turn verbose mode off or on
var VerboseMode bool

// Log is the default log to use
var Log = NewLogger(os.Stdout)

// ErrorLog is the default error log to use
var ErrorLog = NewLogger(os.Stderr)

// NewLogger creates a timestamped logger writing to w
func NewLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

// SetVerbose toggles debug output on both loggers
func SetVerbose(verbose bool) {
	VerboseMode = verbose

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	Log.SetLevel(level)
	ErrorLog.SetLevel(level)
}
