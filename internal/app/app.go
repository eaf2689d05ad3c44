package app

import (
	"context"
	"fmt"

	"mmbot/internal/config"
	"mmbot/internal/config/loader"
	"mmbot/internal/logger"
	livehttp "mmbot/internal/transport/http/live"
	"mmbot/internal/trader"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：初始化依赖 → 启动前检查 → 运行各循环与控制面。
type App struct {
	cfg      *config.Config
	bot      *trader.Bot
	liveHTTP *livehttp.Server
	tuning   *loader.TuningLoader
	closers  []func() error
	Summary  *StartupSummary
}

func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return buildAppWithWire(context.Background(), cfg, opts...)
}

// Run 执行启动检查后运行到 ctx 结束；启动检查失败直接返回错误。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.bot == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Print()
	}
	if err := a.bot.Bootstrap(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("control http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.bot.Run(ctx)
	})
	return group.Wait()
}

// Close 释放 journal 等资源，可重复调用。
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("[app] close failed: %v", err)
		}
	}
	a.closers = nil
}

func (a *App) Bot() *trader.Bot {
	if a == nil {
		return nil
	}
	return a.bot
}
