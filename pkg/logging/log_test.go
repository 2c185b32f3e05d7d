package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	prev := Level()
	defer SetLevel(prev)

	SetLevel(zapcore.DebugLevel)
	require.Equal(t, zapcore.DebugLevel, Level())
	require.True(t, L().Core().Enabled(zapcore.DebugLevel))

	SetLevel(zapcore.ErrorLevel)
	require.False(t, S().Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestModesKeepLevel(t *testing.T) {
	prev := Level()
	defer func() {
		SetLevel(prev)
		DevelopmentMode()
	}()

	SetLevel(zapcore.InfoLevel)
	ConsoleMode()
	require.True(t, L().Core().Enabled(zapcore.InfoLevel))
	require.False(t, L().Core().Enabled(zapcore.DebugLevel))
}
