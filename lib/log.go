package lib

import (
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LogTimeFormat = "2006-01-02T15:04:05.000"
)

func consoleWriter() zerolog.ConsoleWriter {
	if runtime.GOOS == "windows" {
		return zerolog.ConsoleWriter{Out: colorable.NewColorableStdout(), TimeFormat: LogTimeFormat}
	}
	return zerolog.ConsoleWriter{Out: os.Stdout, NoColor: false, TimeFormat: LogTimeFormat}
}

// ZeroConsoleLog configures the global logger to write human readable
// output to the console.
func ZeroConsoleLog() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(consoleWriter())
}

// ZeroConsoleAndFileLog configures the global logger to write to the
// console and append JSON lines to the given file.
func ZeroConsoleAndFileLog(filename string) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	logFile, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Error().Err(err).Msg("Error setting up log config")
		ZeroConsoleLog()
		return
	}

	mw := io.MultiWriter(logFile, consoleWriter())
	log.Logger = zerolog.New(mw).With().Timestamp().Logger()
}

// ZeroJSONAndFileLog configures the global logger to write JSON lines
// to stdout and append them to the given file.
func ZeroJSONAndFileLog(filename string) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	logFile, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Error().Err(err).Msg("Error setting up log config")
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	mw := io.MultiWriter(logFile, os.Stdout)
	log.Logger = zerolog.New(mw).With().Timestamp().Logger()
}
