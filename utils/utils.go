package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger. format "json" writes
// structured lines to w, anything else a human readable console.
func SetupLogger(w io.Writer, level, format string) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"})
}

func AddToLogMessage(logMessagesBuilder *strings.Builder, strToAdd string) {

	if logMessagesBuilder.Len() == logMessagesBuilder.Cap() {

		logMessagesBuilder.Grow(len(strToAdd))
	}

	logMessagesBuilder.WriteString(strToAdd)
	logMessagesBuilder.WriteString(";")
	logMessagesBuilder.WriteString("\n")
}

// FlushLogMessage writes the accumulated per-request log as one structured
// entry. Requests that ended in a server error are logged at error level.
func FlushLogMessage(logger zerolog.Logger, logMessagesBuilder *strings.Builder, status int) {
	if logMessagesBuilder.Len() == 0 {
		return
	}
	event := logger.Info()
	if status >= 500 {
		event = logger.Error()
	}
	event.Int("status", status).Msg(strings.TrimSuffix(logMessagesBuilder.String(), "\n"))
}
