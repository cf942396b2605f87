package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	l, err := New("bankroll-service", "prod", "")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))

	l, err = New("bankroll-service", "local", "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("settlement-worker", "prod", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("settlement-worker", "prod", "loud")
	assert.Error(t, err)
}

func TestMoneyField(t *testing.T) {
	f := Money("balance", 104545)
	assert.Equal(t, "balance_cents", f.Key)
	assert.Equal(t, int64(104545), f.Integer)
}
