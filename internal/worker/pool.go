package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent background I/O. Calls submitted under the same key
// run one at a time in submission order, so two writes of one mask file
// never interleave.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	log    *slog.Logger

	mu    sync.Mutex
	tails map[string]chan struct{}
}

// NewPool creates a pool running at most n calls at once.
func NewPool(n int64, logger *slog.Logger) *Pool {
	if n < 1 {
		n = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(n),
		log:    logger.With("component", "worker"),
		tails:  make(map[string]chan struct{}),
	}
}

// Submit runs fn in the background. An empty key means no ordering with
// other calls.
func Submit[T any](p *Pool, key string, fn func(ctx context.Context) (T, error)) *Task[T] {
	t := newTask[T]()
	prev, mine := p.chain(key)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if mine != nil {
			defer p.release(key, mine)
		}
		if prev != nil {
			select {
			case <-prev:
			case <-p.ctx.Done():
				var zero T
				t.finish(zero, p.ctx.Err())
				return
			}
		}
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			var zero T
			t.finish(zero, err)
			return
		}
		defer p.sem.Release(1)

		v, err := run(p.ctx, fn)
		if err != nil {
			p.log.Debug("background call failed", "key", key, "error", err)
		}
		t.finish(v, err)
	}()
	return t
}

func run[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("background call panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (p *Pool) chain(key string) (prev, mine chan struct{}) {
	if key == "" {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	prev = p.tails[key]
	mine = make(chan struct{})
	p.tails[key] = mine
	return prev, mine
}

func (p *Pool) release(key string, mine chan struct{}) {
	p.mu.Lock()
	if p.tails[key] == mine {
		delete(p.tails, key)
	}
	p.mu.Unlock()
	close(mine)
}

// Wait blocks until every submitted call has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close cancels queued calls and waits for running ones.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}
