package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"garbage": zapcore.InfoLevel,
	}
	for level, want := range cases {
		l, err := NewLogger(level, "console", "hospital-ai-desk")
		require.NoError(t, err)
		require.True(t, l.Core().Enabled(want), level)
		if want > zapcore.DebugLevel {
			require.False(t, l.Core().Enabled(want-1), level)
		}
	}
}
