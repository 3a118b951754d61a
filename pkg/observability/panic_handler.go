package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with its stack trace.
// It must be called directly in a defer statement:
//
//	defer observability.RecoverPanic(logger, "metrics server")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
	}
}

// RecoverToError converts a recovered panic into an error assigned to *errp.
// Use it in goroutines whose result is collected by an errgroup:
//
//	g.Go(func() (err error) {
//	    defer observability.RecoverToError(logger, "api server", &err)
//	    ...
//	})
func RecoverToError(logger *Logger, where string, errp *error) {
	if r := recover(); r != nil {
		logPanic(logger, where, r)
		if errp != nil {
			*errp = fmt.Errorf("panic in %s: %v", where, r)
		}
	}
}

func logPanic(logger *Logger, where string, r interface{}) {
	logger.WithFields(map[string]interface{}{
		"panic":   fmt.Sprint(r),
		"stack":   string(debug.Stack()),
		"context": where,
	}).Error("PANIC recovered")
}
