package logging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/listing-explorer/pkg/config"
)

type postedRecord struct {
	tag    string
	record map[string]interface{}
}

type fakePoster struct {
	mu    sync.Mutex
	posts []postedRecord
	err   error
}

func (p *fakePoster) Post(tag string, message interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, postedRecord{tag: tag, record: message.(map[string]interface{})})
	return p.err
}

func TestFluentCore_PostsEntryWithFields(t *testing.T) {
	poster := &fakePoster{}
	logger := zap.New(NewFluentCore(poster, zapcore.InfoLevel)).
		Named("listings").
		With(zap.String("session_id", "abc"))

	logger.Info("bounds discovered", zap.Int64("total_rows", 3))

	require.Len(t, poster.posts, 1)
	got := poster.posts[0]
	assert.Equal(t, "info", got.tag)
	assert.Equal(t, "bounds discovered", got.record["message"])
	assert.Equal(t, "info", got.record["level"])
	assert.Equal(t, "listings", got.record["logger"])
	assert.Equal(t, "abc", got.record["session_id"])
	assert.Equal(t, int64(3), got.record["total_rows"])
	assert.NotEmpty(t, got.record["timestamp"])
}

func TestFluentCore_RespectsLevel(t *testing.T) {
	poster := &fakePoster{}
	logger := zap.New(NewFluentCore(poster, zapcore.WarnLevel))

	logger.Debug("ignored")
	logger.Info("ignored")
	logger.Error("kept")

	require.Len(t, poster.posts, 1)
	assert.Equal(t, "error", poster.posts[0].tag)
}

func TestFluentCore_PostErrorDoesNotPropagate(t *testing.T) {
	poster := &fakePoster{err: errors.New("collector unreachable")}
	core := NewFluentCore(poster, zapcore.InfoLevel)

	err := core.Write(zapcore.Entry{Level: zapcore.InfoLevel, Message: "hello"}, nil)
	assert.NoError(t, err)
	assert.NoError(t, core.Sync())
}

func TestFluentCore_WithDoesNotShareFields(t *testing.T) {
	poster := &fakePoster{}
	base := zap.New(NewFluentCore(poster, zapcore.InfoLevel))

	base.With(zap.String("a", "1")).Info("first")
	base.Info("second")

	require.Len(t, poster.posts, 2)
	assert.Equal(t, "1", poster.posts[0].record["a"])
	assert.NotContains(t, poster.posts[1].record, "a")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, _, err := NewLogger(config.LoggingConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewLogger_LevelApplied(t *testing.T) {
	logger, cleanup, err := NewLogger(config.LoggingConfig{Level: "warn", Development: true})
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
