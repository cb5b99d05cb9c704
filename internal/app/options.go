package app

import (
	"os"
	"time"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：api 只起 HTTP，worker 只起队列消费与定时任务
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

func runsAPI(mode string) bool {
	return mode == ModeAll || mode == ModeAPI
}

func runsWorker(mode string) bool {
	return mode == ModeAll || mode == ModeWorker
}
