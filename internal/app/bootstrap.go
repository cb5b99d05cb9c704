package app

import (
	"errors"
	"fmt"
	"net"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/provider"
	"github.com/sarvcast-next/internal/router"
	"github.com/sarvcast-next/internal/worker"
)

// BuildRunner 按启动模式组装服务
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !runsAPI(mode) && !runsWorker(mode) {
		return nil, fmt.Errorf("unknown run mode %q", mode)
	}

	container := provider.NewContainer(cfg)
	services := make([]Service, 0, 2)
	if runsAPI(mode) {
		services = append(services, NewHTTPService(listenAddr(cfg), router.SetupRouter(cfg, container)))
	}
	if runsWorker(mode) {
		workerService, err := worker.NewService(&cfg.Queue, &cfg.Worker, worker.NewConsumer(container))
		if err != nil {
			return nil, fmt.Errorf("build worker: %w", err)
		}
		services = append(services, workerService)
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	opts.Logger.Infow("app_start", "addr", listenAddr(opts.Config), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}

func listenAddr(cfg *config.Config) string {
	return net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
}
