package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lcalzada-xor/wpsscan/internal/core/domain"
	"github.com/lcalzada-xor/wpsscan/internal/core/ports"
	"github.com/lcalzada-xor/wpsscan/internal/logging"
)

// MultiSink fans a device out to every sink. All sinks are called even when
// one fails; the failures are joined.
type MultiSink []ports.DeviceSink

func (m MultiSink) Emit(ctx context.Context, device domain.Device) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, device); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultAsyncWorkers bounds the goroutines delivering to a slow sink.
const DefaultAsyncWorkers = 4

type asyncJob struct {
	ctx    context.Context
	device domain.Device
}

// AsyncSink hands devices to a worker pool so a slow sink (database, disk)
// never stalls the capture loop. Delivery failures are logged and counted.
type AsyncSink struct {
	name   string
	next   ports.DeviceSink
	pool   *ants.PoolWithFunc
	wg     sync.WaitGroup
	logger *zap.Logger
	failed atomic.Int64
}

// NewAsyncSink wraps next with a pool of workers goroutines.
func NewAsyncSink(name string, next ports.DeviceSink, workers int, logger *zap.Logger) (*AsyncSink, error) {
	if workers <= 0 {
		workers = DefaultAsyncWorkers
	}
	s := &AsyncSink{
		name:   name,
		next:   next,
		logger: logging.OrNop(logger).Named("sink").With(zap.String("sink", name)),
	}
	pool, err := ants.NewPoolWithFunc(workers, s.deliver)
	if err != nil {
		return nil, fmt.Errorf("create %s worker pool: %w", name, err)
	}
	s.pool = pool
	return s, nil
}

func (s *AsyncSink) deliver(arg interface{}) {
	defer s.wg.Done()
	job := arg.(asyncJob)
	if err := s.next.Emit(job.ctx, job.device); err != nil {
		s.failed.Add(1)
		s.logger.Warn("Device delivery failed", zap.Stringer("bssid", job.device.BSSID), zap.Error(err))
	}
}

// Emit queues the device. It blocks only while every worker is busy.
func (s *AsyncSink) Emit(ctx context.Context, device domain.Device) error {
	s.wg.Add(1)
	if err := s.pool.Invoke(asyncJob{ctx: context.WithoutCancel(ctx), device: device}); err != nil {
		s.wg.Done()
		return fmt.Errorf("%s sink: %w", s.name, err)
	}
	return nil
}

// Name returns the label the sink was created with.
func (s *AsyncSink) Name() string {
	return s.name
}

// Failed returns the number of deliveries the wrapped sink rejected.
func (s *AsyncSink) Failed() int64 {
	return s.failed.Load()
}

// Close waits for queued deliveries and releases the pool.
func (s *AsyncSink) Close() {
	s.wg.Wait()
	s.pool.Release()
}
