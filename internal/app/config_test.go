package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name    string
		in      Config
		want    *Config
		wantErr string
	}{
		{
			name: "defaults",
			in:   Config{ModelPath: "model.hcl"},
			want: &Config{ModelPath: "model.hcl", Target: "cpu", PrintFormat: "text", LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "explicit values are normalized",
			in:   Config{ModelPath: "m", Target: "gpu", PrintFormat: "JSON", LogFormat: "Json", LogLevel: "DEBUG", MaxIterations: 4, NoFusion: true},
			want: &Config{ModelPath: "m", Target: "gpu", PrintFormat: "json", LogFormat: "json", LogLevel: "debug", MaxIterations: 4, NoFusion: true},
		},
		{name: "missing model path", in: Config{}, wantErr: "ModelPath is a required configuration field"},
		{name: "negative iterations", in: Config{ModelPath: "m", MaxIterations: -1}, wantErr: "MaxIterations must not be negative"},
		{name: "bad print format", in: Config{ModelPath: "m", PrintFormat: "yaml"}, wantErr: "invalid PrintFormat"},
		{name: "bad log format", in: Config{ModelPath: "m", LogFormat: "xml"}, wantErr: "invalid LogFormat"},
		{name: "bad log level", in: Config{ModelPath: "m", LogLevel: "trace"}, wantErr: "invalid log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewConfig(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := newLogger("warn", "json", buf)
	logger.Info("hidden")
	logger.Warn("Shown.", "key", "value")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"Shown."`)

	buf = &bytes.Buffer{}
	logger = newLogger("nonsense", "text", buf)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
