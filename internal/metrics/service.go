// Service layer of the internal package metrics.

package metrics

import (
	"Wanna/internal/entity"
	"Wanna/pkg/log"
	"context"
	"sync"
	"time"
)

// Service layer of internal package metrics which exposes and persists the realtime counters of Wanna.
type Service interface {
	// live Wanna metrics
	GetMetrics(ctx context.Context) entity.Metrics
	// last Wanna metrics written into the DB
	GetPersistedMetrics(ctx context.Context) (entity.Metrics, error)
	// persist metrics every interval until Stop is called or ctx is done
	Run(ctx context.Context)
	// stop Run and persist a final snapshot
	Stop(ctx context.Context) error
}

// Object of this will be passed around from main to routers to API.
// Helps to access the service layer interface and call methods.
type service struct {
	collector   *Collector
	metricsRepo Repository
	logger      log.Logger
	interval    time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewService(collector *Collector, metricsRepo Repository, interval time.Duration, logger log.Logger) Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &service{
		collector:   collector,
		metricsRepo: metricsRepo,
		logger:      logger,
		interval:    interval,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (s *service) GetMetrics(ctx context.Context) entity.Metrics {
	return s.collector.Snapshot()
}

func (s *service) GetPersistedMetrics(ctx context.Context) (entity.Metrics, error) {
	return s.metricsRepo.GetMetrics(ctx, s.logger)
}

func (s *service) Run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithCtx(ctx).Info().Msg("Launching metrics persistence")
	for {
		select {
		case <-ticker.C:
			s.persist(ctx)
		case <-s.stop:
			s.logger.WithCtx(ctx).Info().Msg("Successfully stopped metrics persistence")
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *service) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.persist(ctx)
}

func (s *service) persist(ctx context.Context) error {
	snapshot := s.collector.Snapshot()
	return s.metricsRepo.SetOrUpdateMetrics(ctx, s.logger, &snapshot)
}
