package grpcx

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check 依赖探测，返回 nil 表示可用
type Check func(ctx context.Context) error

// HealthReporter 周期性执行依赖探测并更新 grpc.health.v1 状态。
// 每个探测注册为同名服务，空服务名表示全部探测均通过。
type HealthReporter struct {
	srv     *health.Server
	checks  map[string]Check
	timeout time.Duration
	logger  *zap.Logger
}

func NewHealthReporter(gs *grpc.Server, checks map[string]Check, timeout time.Duration, logger *zap.Logger) *HealthReporter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := health.NewServer()
	healthpb.RegisterHealthServer(gs, srv)
	return &HealthReporter{srv: srv, checks: checks, timeout: timeout, logger: logger}
}

// Run 执行一轮探测，可作为 scheduler.Job
func (h *HealthReporter) Run(ctx context.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := h.checks[name](cctx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = st
			h.logger.Warn("health check failed", zap.String("service", name), zap.Error(err))
		}
		h.srv.SetServingStatus(name, st)
	}
	h.srv.SetServingStatus("", overall)
}

// Shutdown 将全部服务置为 NOT_SERVING
func (h *HealthReporter) Shutdown() {
	h.srv.Shutdown()
}
