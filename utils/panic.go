package utils

import log "github.com/sirupsen/logrus"

// HandlePanic is meant to be deferred: it recovers a pending panic,
// reports it, then runs fn as the final cleanup step.
func HandlePanic(fn func()) {
	if r := recover(); r != nil {
		log.Error(r)
	}

	fn()
}
