package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

func TestWatcher_TriggersOnWatchedFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var calls atomic.Int32
	var last atomic.Value
	w := New(Config{Dir: dir, Files: []string{"Planilha2.xlsx"}, Debounce: 50 * time.Millisecond},
		func(ctx context.Context, changed string) error {
			calls.Add(1)
			last.Store(changed)
			return nil
		}, logger.Discard())
	require.NoError(t, w.Start(ctx))

	// Unwatched names are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outro.xlsx"), []byte("x"), 0644))

	// A burst of writes fires once.
	target := filepath.Join(dir, "Planilha2.xlsx")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte(i)}, 0644))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, target, last.Load())

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_Matches(t *testing.T) {
	anyFile := New(Config{Dir: "."}, nil, nil)
	assert.True(t, anyFile.matches("/x/a.xlsx"))
	assert.True(t, anyFile.matches("b.csv"))
	assert.False(t, anyFile.matches("~lock.tmp"))

	named := New(Config{Dir: ".", Files: []string{"Planilha1.xlsx"}}, nil, nil)
	assert.True(t, named.matches("/data/Planilha1.xlsx"))
	assert.False(t, named.matches("/data/Planilha2.xlsx"))
}

func TestWatcher_IgnoresOutput(t *testing.T) {
	w := New(Config{
		Dir:    "/data",
		Files:  []string{"Planilha1.xlsx", "Planilha2.xlsx"},
		Ignore: []string{"/data/./Planilha2.xlsx"},
	}, nil, nil)
	assert.True(t, w.matches("/data/Planilha1.xlsx"))
	assert.False(t, w.matches("/data/Planilha2.xlsx"))
	assert.True(t, w.matches("/other/Planilha2.xlsx"))
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, nil, logger.Discard())
	assert.Error(t, w.Start(context.Background()))
}
