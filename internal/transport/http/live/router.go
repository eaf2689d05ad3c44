package livehttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"mmbot/internal/logger"
	"mmbot/internal/store/model"
	"mmbot/internal/trader"

	"github.com/gin-gonic/gin"
)

// Controller 是控制面依赖的机器人操作集合。
type Controller interface {
	Start(ctx context.Context) string
	Stop(ctx context.Context) string
	Flatten(ctx context.Context) (string, trader.FlattenResult, error)
	Status() trader.Status
}

// JournalReader 读取最近的审计记录，可为空。
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]model.JournalEntry, error)
}

type Router struct {
	ctrl    Controller
	journal JournalReader
}

func NewRouter(ctrl Controller, journal JournalReader) *Router {
	return &Router{ctrl: ctrl, journal: journal}
}

// Register 挂载原有的根路径路由以及 /api/bot 下的别名。
func (r *Router) Register(engine *gin.Engine) {
	engine.POST("/start_bot", r.handleStart)
	engine.POST("/stop_bot", r.handleStop)
	engine.POST("/close_all_positions", r.handleFlatten)
	engine.GET("/status", r.handleStatus)

	api := engine.Group("/api/bot")
	api.POST("/start", r.handleStart)
	api.POST("/stop", r.handleStop)
	api.POST("/flatten", r.handleFlatten)
	api.GET("/status", r.handleStatus)
	api.GET("/journal", r.handleJournal)
}

func (r *Router) handleStart(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: r.ctrl.Start(c.Request.Context())})
}

func (r *Router) handleStop(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: r.ctrl.Stop(c.Request.Context())})
}

func (r *Router) handleFlatten(c *gin.Context) {
	msg, res, err := r.ctrl.Flatten(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] flatten failed: %v", err)
		c.JSON(http.StatusInternalServerError, FlattenResponse{
			Status: "Error closing positions. Check logs.",
			Error:  err.Error(),
			Result: res,
		})
		return
	}
	c.JSON(http.StatusOK, FlattenResponse{Status: msg, Result: res})
}

func (r *Router) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.ctrl.Status())
}

func (r *Router) handleJournal(c *gin.Context) {
	if r.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	entries, err := r.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] journal query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	c.JSON(http.StatusOK, JournalResponse{Entries: entries, Count: len(entries)})
}
