package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Job is a unit of best-effort work, e.g. one websocket write.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of goroutines. Submit never blocks: when
// the queue is full the job is dropped and counted.
type Pool struct {
	logger  *zap.Logger
	count   int
	jobs    chan Job
	wg      sync.WaitGroup
	stop    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func NewPool(logger *zap.Logger, count, queue int) *Pool {
	if count <= 0 {
		count = 1
	}
	if queue <= 0 {
		queue = 1
	}
	return &Pool{
		logger: logger,
		count:  count,
		jobs:   make(chan Job, queue),
		stop:   make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.count), zap.Int("queue", cap(p.jobs)))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for running jobs; queued ones are discarded.
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.stop)
		p.wg.Wait()
		p.logger.Info("Worker pool stopped", zap.Int64("dropped", p.dropped.Load()))
	})
}

// Submit ставит задачу в очередь без ожидания. false - очередь полна или пул остановлен.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.stop:
		return false
	default:
	}

	select {
	case p.jobs <- job:
		return true
	default:
		n := p.dropped.Add(1)
		p.logger.Warn("worker queue full, job dropped", zap.Int64("dropped_total", n))
		return false
	}
}

// Dropped returns how many jobs were discarded because the queue was full.
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.run(ctx, id, job)
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	job(ctx)
}
