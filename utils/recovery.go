package utils

import (
	"runtime/debug"

	"github.com/rs/zerolog"
)

// RecoverFromPanic recovers from panics and logs them.
func RecoverFromPanic(logger zerolog.Logger, context string) {
	if r := recover(); r != nil {
		logger.Error().
			Str("context", context).
			Interface("panic", r).
			Str("stack", string(debug.Stack())).
			Msg("panic recovered")
	}
}

// SafeGo runs a goroutine with panic recovery.
func SafeGo(logger zerolog.Logger, context string, fn func()) {
	go func() {
		defer RecoverFromPanic(logger, context)
		fn()
	}()
}
