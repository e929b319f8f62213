package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "INFO", want: zerolog.InfoLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "warning", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "verbose", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "parseLevel(%q)", tt.in)
	}
}

func TestShortCaller(t *testing.T) {
	file := filepath.Join("root", "module", "internal", "app", "engine.go")
	assert.Equal(t, filepath.Join("app", "engine.go")+":42", shortCaller(0, file, 42))
	assert.Equal(t, "main.go:7", shortCaller(0, "main.go", 7))
}

func TestInit_JSONWriter(t *testing.T) {
	var buf bytes.Buffer
	closer, err := Init(Config{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)
	defer closer()

	zlog.Info().Msg("hidden")
	zlog.Warn().Msgf("engine: command dropped: name=%s", "next")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "engine: command dropped: name=next")
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "queuebox.log")
	closer, err := Init(Config{Level: "info", Output: path})
	require.NoError(t, err)

	zlog.Info().Msg("to file")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"to file"`)

	_, err = Init(Config{Output: "stderr"})
	require.NoError(t, err)
}
