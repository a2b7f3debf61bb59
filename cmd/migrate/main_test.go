package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

type mockMigrator struct {
	mock.Mock
}

func (m *mockMigrator) Up() error         { return m.Called().Error(0) }
func (m *mockMigrator) Down() error       { return m.Called().Error(0) }
func (m *mockMigrator) Steps(n int) error { return m.Called(n).Error(0) }
func (m *mockMigrator) Force(v int) error { return m.Called(v).Error(0) }

func (m *mockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantArg int
		wantErr string
	}{
		{name: "up", args: []string{"up"}},
		{name: "step back", args: []string{"step", "-2"}, wantArg: -2},
		{name: "force", args: []string{"force", "2"}, wantArg: 2},
		{name: "no command", args: nil, wantErr: "missing command"},
		{name: "unknown", args: []string{"seed"}, wantErr: `unknown command "seed"`},
		{name: "step without count", args: []string{"step"}, wantErr: "step takes 1 argument"},
		{name: "up with argument", args: []string{"up", "3"}, wantErr: "up takes 0 argument"},
		{name: "non integer", args: []string{"force", "two"}, wantErr: `"two" is not an integer`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, arg, err := parse(tt.args)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, errUsage)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArg, arg)
		})
	}
}

func TestCommands(t *testing.T) {
	log := zap.NewNop()

	t.Run("step forwards the count", func(t *testing.T) {
		m := new(mockMigrator)
		m.On("Steps", -1).Return(nil)

		cmd, n, err := parse([]string{"step", "-1"})
		require.NoError(t, err)
		require.NoError(t, cmd.run(m, n, log))
		m.AssertExpectations(t)
	})

	t.Run("zero steps is rejected", func(t *testing.T) {
		m := new(mockMigrator)
		cmd, n, err := parse([]string{"step", "0"})
		require.NoError(t, err)
		assert.ErrorIs(t, cmd.run(m, n, log), errUsage)
		m.AssertNotCalled(t, "Steps", mock.Anything)
	})

	t.Run("up surfaces migrator errors", func(t *testing.T) {
		m := new(mockMigrator)
		m.On("Up").Return(errors.New("dirty database version 2"))

		cmd, n, err := parse([]string{"up"})
		require.NoError(t, err)
		assert.ErrorContains(t, cmd.run(m, n, log), "dirty database")
	})

	t.Run("version logs the schema version", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		m := new(mockMigrator)
		m.On("Version").Return(uint(2), false, nil)

		cmd, n, err := parse([]string{"version"})
		require.NoError(t, err)
		require.NoError(t, cmd.run(m, n, zap.New(core)))
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, uint64(2), logs.All()[0].ContextMap()["version"])
	})
}
