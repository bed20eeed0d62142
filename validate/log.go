package validate

import "go.uber.org/zap"

// logger gates trace-level validator logging the same way the teacher's
// PrintDebugInfo/SetDebugMode pair did: silent by default, switched on
// only to diagnose the checker itself rather than for normal operation.
var logger = zap.NewNop().Sugar()

// SetDebug toggles structured debug logging of Module: one line when a
// module's validation starts, one on rejection (with the diagnostic message
// and, where there is one, the index of the offending declaration), and one
// on acceptance. Individual instructions and stack transitions are not
// logged. Off by default; each call replaces the package logger wholesale,
// matching the teacher's init-time toggle.
func SetDebug(on bool) {
	if !on {
		logger = zap.NewNop().Sugar()
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop().Sugar()
		return
	}
	logger = l.Sugar()
}
