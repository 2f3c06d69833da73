package logging

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func FxLogger() fx.Option {
	return fx.WithLogger(func(logger *Logger) fxevent.Logger {
		return &fxevent.SlogLogger{Logger: logger.GetLogger("fx")}
	})
}
