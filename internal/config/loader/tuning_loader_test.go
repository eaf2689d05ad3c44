package loader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestTuningLoaderReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "trading:\n  base_qty: 0.01\n  max_open_orders: 10\n")

	l, err := NewTuningLoader(path, false)
	require.NoError(t, err)
	snap := l.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, 0.01, snap.Trading.BaseQty)
	assert.Equal(t, 10, snap.Trading.MaxOpenOrders)
	assert.Equal(t, 1.5, snap.Trading.SpreadMultiplier)

	writeConfig(t, path, "trading:\n  base_qty: 0.02\n  max_open_orders: 5\n")
	require.NoError(t, l.reload())
	snap = l.Snapshot()
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, 0.02, snap.Trading.BaseQty)
	assert.Equal(t, 5, snap.Trading.MaxOpenOrders)
}

func TestTuningLoaderKeepsSnapshotOnInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "trading:\n  stop_loss_usd: 3\n")
	l, err := NewTuningLoader(path, false)
	require.NoError(t, err)

	writeConfig(t, path, "analysis:\n  short_ma_period: 60\n  long_ma_period: 50\n")
	assert.Error(t, l.reload())
	assert.Equal(t, 3.0, l.Snapshot().Trading.StopLossUSD)
	assert.Equal(t, int64(1), l.Snapshot().Version)
}

func TestSubscribeReceivesCurrentSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "trading:\n  profit_target_usd: 20\n")
	l, err := NewTuningLoader(path, false)
	require.NoError(t, err)

	var got []TuningSnapshot
	l.Subscribe(func(s TuningSnapshot) { got = append(got, s) })
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, got[0].Trading.ProfitTargetUSD)

	l.Subscribe(func(TuningSnapshot) { panic("boom") })
	writeConfig(t, path, "trading:\n  profit_target_usd: 25\n")
	require.NoError(t, l.reload())
	l.notify()
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].Version)
	assert.Equal(t, 25.0, got[1].Trading.ProfitTargetUSD)
}

func TestRapidReloadsDeliverInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "trading:\n  stop_loss_usd: 2\n")
	l, err := NewTuningLoader(path, false)
	require.NoError(t, err)

	var mu sync.Mutex
	var versions []int64
	var applied float64
	l.Subscribe(func(s TuningSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
		applied = s.Trading.StopLossUSD
	})

	// 编辑器连续两次写文件：v2 的回调晚于 v3 到达时必须被丢弃。
	writeConfig(t, path, "trading:\n  stop_loss_usd: 3\n")
	require.NoError(t, l.reload())
	stale := l.Snapshot()
	writeConfig(t, path, "trading:\n  stop_loss_usd: 4\n")
	require.NoError(t, l.reload())
	l.notify()
	l.dispatch(stale, l.listeners)

	assert.Equal(t, []int64{1, 3}, versions)
	assert.Equal(t, 4.0, applied)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.notify()
		}()
	}
	wg.Wait()
	assert.Equal(t, []int64{1, 3}, versions)
}

func TestNewTuningLoaderRequiresPath(t *testing.T) {
	_, err := NewTuningLoader("", false)
	assert.Error(t, err)
}
