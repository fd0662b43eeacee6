package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger tags the process-wide logger with the station identity and
// installs it globally. Writer and level are whatever logging.Configure
// already set up; this only adds the app field.
func InitLogger(app string) zerolog.Logger {
	logger := log.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
