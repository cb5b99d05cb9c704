package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/sarvcast-next/internal/config"
	"github.com/sarvcast-next/internal/logger"
	"github.com/sarvcast-next/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

const defaultCouponExpirySpec = "@every 1h"

// Service 后台任务服务：asynq 消费者（队列启用时）与定时任务
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *cron.Cron
	consumer  *Consumer
}

// NewService 创建后台任务服务
func NewService(queueCfg *config.QueueConfig, workerCfg *config.WorkerConfig, consumer *Consumer) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	s := &Service{
		name:     "worker",
		consumer: consumer,
	}

	if queueCfg != nil && queueCfg.Enabled {
		opt, serverCfg := queue.BuildServerConfig(queueCfg)
		s.server = asynq.NewServer(opt, serverCfg)
		s.mux = asynq.NewServeMux()
		consumer.Register(s.mux)
	}

	spec := defaultCouponExpirySpec
	if workerCfg != nil && strings.TrimSpace(workerCfg.CouponExpirySpec) != "" {
		spec = strings.TrimSpace(workerCfg.CouponExpirySpec)
	}
	cronLogger := cron.PrintfLogger(logger.StdLogger())
	s.scheduler = cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	if _, err := s.scheduler.AddFunc(spec, consumer.sweepExpiredCoupons); err != nil {
		return nil, err
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.scheduler == nil {
		return errors.New("worker not initialized")
	}
	s.scheduler.Start()
	if s.server == nil {
		logger.Infow("worker_queue_disabled", "scheduled_jobs", len(s.scheduler.Entries()))
		<-ctx.Done()
		return nil
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.scheduler != nil {
		select {
		case <-s.scheduler.Stop().Done():
		case <-ctx.Done():
			logger.Warnw("worker_scheduler_stop_timeout")
		}
	}
	if s.server != nil {
		s.server.Shutdown()
	}
	return nil
}
