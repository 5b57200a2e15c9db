// Package stdlogger adapts the global zerolog logger to a printf-style
// leveled interface (Debugf, Infof, Warningf, Errorf). Nothing in the
// current dependency set asks for one; the adapter is kept for client
// libraries that are configured with such a logger, so their output lands
// in the structured log instead of stderr.
package stdlogger

import (
	"github.com/rs/zerolog/log"
)

// Logger writes printf-style messages through the global zerolog logger.
type Logger struct{}

// New returns a printf-style logger backed by zerolog.
func New() Logger {
	return Logger{}
}

// Debugf logs at debug level.
func (Logger) Debugf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

// Infof logs at info level.
func (Logger) Infof(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}

// Warningf logs at warn level.
func (Logger) Warningf(format string, args ...interface{}) {
	log.Warn().Msgf(format, args...)
}

// Errorf logs at error level.
func (Logger) Errorf(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}
