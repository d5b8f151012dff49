package store

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Logger routes badger's internal logging through zerolog.
type Logger struct{}

func NewLogger() *Logger {
	return new(Logger)
}

func (l *Logger) Errorf(format string, args ...any) {
	log.Error().Msgf("badger: "+strings.TrimSpace(format), args...)
}

func (l *Logger) Warningf(format string, args ...any) {
	log.Warn().Msgf("badger: "+strings.TrimSpace(format), args...)
}

func (l *Logger) Infof(format string, args ...any) {
	log.Debug().Msgf("badger: "+strings.TrimSpace(format), args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	log.Trace().Msgf("badger: "+strings.TrimSpace(format), args...)
}
