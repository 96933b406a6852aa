package logging

import (
	"log"

	"rush/application"
)

// LogLogger implements application.Logger over the standard log package.
type LogLogger struct{}

func NewLogLogger() application.Logger {
	return &LogLogger{}
}

func (l LogLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}
