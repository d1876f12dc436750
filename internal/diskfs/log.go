package diskfs

import "log"

// logPrefix matches the teacher's "squash: " tracing convention (super.go).
const logPrefix = "cs1550fs: "

func logf(format string, args ...any) {
	log.Printf(logPrefix+format, args...)
}
