package loader

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"mmbot/internal/config"
	"mmbot/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TuningSnapshot 是可热更新的交易参数快照。
type TuningSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Trading  config.TradingConfig
}

// ChangeListener 在配置变更时被调用。
type ChangeListener func(TuningSnapshot)

// TuningLoader 监听配置文件，变更后重新解析并把 trading 段推给订阅者。
// symbol 与各类周期不参与热更新，订阅方只应用风险与节奏参数。
type TuningLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  TuningSnapshot
	listeners []*listener

	// dispatchMu 串行化回调，保证每个监听器按版本递增顺序收到快照。
	dispatchMu sync.Mutex
}

type listener struct {
	fn   ChangeListener
	last int64
}

// NewTuningLoader 读取配置文件；watch=true 时开始监听 FS 事件。
func NewTuningLoader(path string, watch bool) (*TuningLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("tuning loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	l := &TuningLoader{path: path, v: v}
	if err := l.reload(); err != nil {
		return nil, err
	}
	if watch {
		v.OnConfigChange(func(evt fsnotify.Event) {
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				return
			}
			if err := l.reload(); err != nil {
				logger.Errorf("[config] reload failed (%s): %v", evt.Name, err)
				return
			}
			logger.Infof("[config] trading parameters reloaded from %s", evt.Name)
			l.notify()
		})
		v.WatchConfig()
	}
	return l, nil
}

// Snapshot 返回当前快照。
func (l *TuningLoader) Snapshot() TuningSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshot
}

// Subscribe 注册监听器，并在返回前同步收到一次当前快照。
func (l *TuningLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	ln := &listener{fn: fn}
	l.mu.Lock()
	l.listeners = append(l.listeners, ln)
	l.mu.Unlock()
	l.dispatch(l.Snapshot(), []*listener{ln})
}

// reload 走完整的 Load 流程（include、默认值、校验），失败时保留旧快照。
func (l *TuningLoader) reload() error {
	cfg, err := config.Load(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.snapshot = TuningSnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Trading:  cfg.Trading,
	}
	l.mu.Unlock()
	return nil
}

func (l *TuningLoader) notify() {
	l.mu.RLock()
	listeners := append([]*listener(nil), l.listeners...)
	l.mu.RUnlock()
	l.dispatch(l.Snapshot(), listeners)
}

// dispatch 同步回调；版本不高于监听器已收到的快照会被丢弃。
func (l *TuningLoader) dispatch(snap TuningSnapshot, listeners []*listener) {
	l.dispatchMu.Lock()
	defer l.dispatchMu.Unlock()
	for _, ln := range listeners {
		if snap.Version <= ln.last {
			logger.Debugf("[config] drop stale tuning v%d (listener at v%d)", snap.Version, ln.last)
			continue
		}
		ln.last = snap.Version
		safeCall(ln.fn, snap)
	}
}

func safeCall(fn ChangeListener, snap TuningSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[config] listener panic: %v", r)
		}
	}()
	fn(snap)
}
