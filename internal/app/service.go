package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可独立启停的后台组件（HTTP、worker）
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 并发运行一组服务，任一退出即整体收尾
type Runner struct {
	services []Service
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, opts.Signals...)
		defer stop()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

type serviceExit struct {
	name string
	err  error
}

// Run 启动全部服务，等待信号或首个服务退出，然后按启动的逆序停止
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	for i, svc := range r.services {
		if svc == nil {
			return fmt.Errorf("service #%d is nil", i)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make(chan serviceExit, len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			log.Infow("service_start", "service", svc.Name())
			err := svc.Start(runCtx)
			log.Infow("service_exit", "service", svc.Name(), "error", err)
			exits <- serviceExit{name: svc.Name(), err: err}
		}(svc)
	}

	var runErr error
	select {
	case <-runCtx.Done():
		if !errors.Is(ctx.Err(), context.Canceled) {
			runErr = ctx.Err()
		}
	case exit := <-exits:
		if exit.err != nil {
			runErr = fmt.Errorf("%s: %w", exit.name, exit.err)
		}
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = defaultShutdownTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	var stopErrs []error
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if err := svc.Stop(stopCtx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			stopErrs = append(stopErrs, fmt.Errorf("stop %s: %w", svc.Name(), err))
		}
	}
	if runErr != nil {
		return runErr
	}
	return errors.Join(stopErrs...)
}
