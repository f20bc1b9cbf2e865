package portals

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Levels(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core, logs := observer.New(level)
	log := newZapLogger(core, level, "portals")

	log.Debugf("hidden %d", 1)
	log.Infof("camera %d resized", 3)
	log.Warnf("display %d dangling", 4)
	assert.False(t, log.DebugEnabled())

	log.SetDebug(true)
	assert.True(t, log.DebugEnabled())
	log.Debugf("visible %d", 2)

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "camera 3 resized", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "visible 2", entries[2].Message)
	assert.Equal(t, "portals", entries[0].LoggerName)

	log.SetDebug(false)
	assert.False(t, log.DebugEnabled())
}

func TestZapLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.log")
	log := NewZapLogger(LoggingConfig{Level: "warn", File: path, MaxSizeMB: 1, Quiet: true})

	log.Infof("not written")
	log.Errorf("frame %d dropped", 12)
	log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame 12 dropped")
	assert.NotContains(t, string(data), "not written")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestLoggingModule(t *testing.T) {
	app := NewApp().UseModules(LoggingModule{Config: LoggingConfig{Quiet: true}})

	_, ok := app.Logger().(*ZapLogger)
	assert.True(t, ok)

	var injected Logger
	require.NoError(t, app.callSystem(func(log Logger) { injected = log }))
	assert.Same(t, app.Logger(), injected)
}
