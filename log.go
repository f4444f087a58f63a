package batchply

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger returns the logger used for per-asset reports and the batch summary.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "batchply",
	})
	if verbose {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}
