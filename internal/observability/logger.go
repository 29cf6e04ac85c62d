package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs a console logger tagged with the serving app name.
func InitLogger(app string, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
