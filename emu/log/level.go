package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

func init() {
	// Filtering is done per module, logrus must let everything through.
	logrus.SetLevel(logrus.DebugLevel)
}

// SetOutput sets the destination of all log entries.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Disable turns off all logging, including warnings and errors. Fatal and
// panic entries still stop the program.
func Disable() {
	modDebugMask = 0
	logrus.SetOutput(io.Discard)
}
