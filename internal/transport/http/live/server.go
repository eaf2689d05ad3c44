package livehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mmbot/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server 提供控制面 HTTP 服务：启停、一键平仓、状态、journal 与指标。
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr       string
	Controller Controller
	Journal    JournalReader
	Metrics    http.Handler
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("control server requires a controller")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	return &Server{addr: cfg.Addr, router: newEngine(cfg)}, nil
}

func newEngine(cfg ServerConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	NewRouter(cfg.Controller, cfg.Journal).Register(router)
	return router
}

// Handler 暴露底层路由，便于测试。
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger 记录每次控制面调用。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		if c.Request.Method == http.MethodPost {
			logger.Infof("[api] %s %s status=%d ip=%s dur=%s", c.Request.Method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
			return
		}
		logger.Debugf("[api] %s %s status=%d ip=%s dur=%s", c.Request.Method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("[api] listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
