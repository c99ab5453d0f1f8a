package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/diag"
)

func TestWarnLogsAtLevelMatchingSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := diag.New(zap.New(core))

	c.Warn(ecs.SeverityInfo, "column grew")
	c.Warn(ecs.SeverityWarning, "writerless component type")
	c.Warn(ecs.SeverityCritical, "resource manager exhausted")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestWarnAccumulatesRegardlessOfSeverity(t *testing.T) {
	c := diag.New(nil)

	c.Warn(ecs.SeverityInfo, "first")
	c.Warn(ecs.SeverityCritical, "second")

	err := c.Warnings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.Contains(t, err.Error(), "second")

	c.Reset()
	assert.NoError(t, c.Warnings())
}
