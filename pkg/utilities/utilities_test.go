package utilities

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestIDGenerator_Unique(t *testing.T) {
	g := NewIDGenerator(3)

	var mu sync.Mutex
	seen := make(map[string]struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				id := g.NewID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 4000)
}

func TestIDGenerator_FallsBackToKSUID(t *testing.T) {
	g := NewIDGenerator(-1)
	id := g.NewID()
	assert.Len(t, id, 27, "KSUID string length")

	var nilGen *IDGenerator
	assert.NotEmpty(t, nilGen.NewID())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_DEV", "1")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_MAX_AGE_DAYS", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.Dev)
	assert.Equal(t, 7, cfg.MaxAgeDays)

	t.Setenv("LOG_DEV", "")
	t.Setenv("LOG_MAX_AGE_DAYS", "30")
	cfg = ConfigFromEnv()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 30, cfg.MaxAgeDays)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("loud"))
}

func TestInit_WithRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neighbor.log")
	lg, err := Init(Config{Level: "info", File: path, MaxAgeDays: 1})
	require.NoError(t, err)
	lg.Info("hello")
	_ = lg.Sync()
}
