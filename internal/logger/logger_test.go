package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	cases := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"dev", "", zapcore.InfoLevel},
		{"dev", "debug", zapcore.DebugLevel},
		{"prod", "warn", zapcore.WarnLevel},
		{"production", "nonsense", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		l, err := New(tc.env, tc.level)
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(tc.want), "%s/%s", tc.env, tc.level)
		if tc.want > zapcore.DebugLevel {
			assert.False(t, l.Core().Enabled(tc.want-1), "%s/%s", tc.env, tc.level)
		}
	}
}
