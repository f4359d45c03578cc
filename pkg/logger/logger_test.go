package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: nil,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:         "verbose",
				EnableConsole: true,
			},
			wantErr: ErrInvalidLevel,
		},
		{
			name: "no output",
			config: &Config{
				Level: InfoLevel,
			},
			wantErr: ErrNoOutput,
		},
		{
			name: "file output without path",
			config: &Config{
				Level:      InfoLevel,
				EnableFile: true,
			},
			wantErr: ErrEmptyOutputPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	dir := t.TempDir()

	l, err := New(&Config{
		Level:      DebugLevel,
		Format:     JSONFormat,
		EnableFile: true,
		OutputPath: filepath.Join(dir, "test.log"),
	})
	require.NoError(t, err)

	l.Info("hello", "key", "value")
	l.Debug("debug line", "n", 1)
	require.NoError(t, l.Sync())

	assert.FileExists(t, filepath.Join(dir, "test.log"))
}

func TestNamedAndWithFields(t *testing.T) {
	l, err := New(DefaultConfig())
	require.NoError(t, err)

	named := l.Named("sub")
	assert.NotNil(t, named)

	derived := l.WithFields("component", "test")
	assert.NotNil(t, derived)

	// 奇数个参数不应 panic
	derived.Info("odd args", "only-key")
}

func TestNoop(t *testing.T) {
	l := Noop()
	l.Info("ignored")
	assert.Equal(t, Logger(l), l.Named("x"))
	assert.NoError(t, l.Sync())
}
