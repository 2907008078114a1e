package app

import (
	"errors"
	"net"

	"github.com/signaldesk-ledger/internal/config"
	"github.com/signaldesk-ledger/internal/logger"
	"github.com/signaldesk-ledger/internal/metrics"
	"github.com/signaldesk-ledger/internal/provider"
	"github.com/signaldesk-ledger/internal/router"
	"github.com/signaldesk-ledger/internal/worker"
)

// BuildRunner 按启动模式装配 HTTP 与通知消费服务
func BuildRunner(cfg *config.Config, rawMode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	mode, err := parseMode(rawMode)
	if err != nil {
		return nil, err
	}
	runAPI := mode != ModeWorker
	runWorker := mode == ModeWorker || cfg.Queue.Enabled
	if mode == ModeWorker && !cfg.Queue.Enabled {
		return nil, errors.New("worker mode requires queue.enabled")
	}
	if mode == ModeAPI {
		runWorker = false
	}

	if cfg.Metrics.Enabled {
		metrics.Init()
	}
	container := provider.NewContainer(cfg)

	var services []Service
	if runAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(listenAddr(cfg), engine))
	}
	if runWorker {
		svc, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	} else if mode == ModeAll {
		logger.Infow("app_worker_skipped", "reason", "queue_disabled")
	}

	runner := NewRunner(services...)
	if container.QueueClient != nil {
		runner.OnStop(container.QueueClient.Close)
	}
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = opts.withDefaults()
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
