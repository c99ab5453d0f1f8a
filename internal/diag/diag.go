// Package diag provides the core's diagnostics channel: the place
// capacity-growth, writerless-component-type, and reallocation warnings go
// (spec §4.6 step 1, §7 "Diagnostic warnings"). Nothing that flows through
// it aborts a frame — it is observation, not control flow.
package diag

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
)

// Channel is a structured-logging sink paired with a per-frame warning
// accumulator, so a caller can either tail the log or, at frame end,
// inspect everything that was warned about as a single error value built
// with go.uber.org/multierr.
type Channel struct {
	log      *zap.Logger
	warnings error
}

// New wraps log. A nil log is replaced with a no-op logger so callers that
// don't care about diagnostics don't have to construct one.
func New(log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{log: log}
}

// Warn records a structured warning at the given severity: logs it
// immediately at a level matching sev and folds it into this frame's
// accumulated Warnings(). Severity never changes what Warn does to the
// frame — every severity still lands in Warnings() — it only changes how
// loudly it's logged.
func (c *Channel) Warn(sev ecs.Severity, msg string, fields ...zap.Field) {
	fields = append(fields, zap.Stringer("severity", sev))
	switch sev {
	case ecs.SeverityCritical:
		c.log.Error(msg, fields...)
	case ecs.SeverityInfo:
		c.log.Info(msg, fields...)
	default:
		c.log.Warn(msg, fields...)
	}
	c.warnings = multierr.Append(c.warnings, warning(msg))
}

// warning is a trivial error wrapper so Warn doesn't need to import errors
// just to build a sentinel message value.
type warning string

func (w warning) Error() string { return string(w) }

// Reset clears the accumulated warnings; called by the frame engine at the
// start of each frame.
func (c *Channel) Reset() {
	c.warnings = nil
}

// Warnings returns every warning recorded since the last Reset, combined
// with multierr, or nil if there were none.
func (c *Channel) Warnings() error {
	return c.warnings
}

// Logger exposes the underlying zap logger for callers that want to add
// their own structured fields (e.g. resource load failures).
func (c *Channel) Logger() *zap.Logger {
	return c.log
}
