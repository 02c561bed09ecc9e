package observability

import (
	"github.com/danmuck/hostlink/internal/logging"
	"github.com/rs/zerolog"
)

// InitLogger returns the process logger tagged with the app name.
func InitLogger(app string) zerolog.Logger {
	return logging.Logger().With().Str("app", app).Logger()
}
