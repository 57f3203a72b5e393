package intervention

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openta/adaptive/internal/logging"
)

// ErrDispatcherClosed is returned by Push after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Handler processes one signal.
type Handler func(ctx context.Context, sig Signal) error

// Dispatcher fans signals out to a fixed set of ordered shards. All signals
// of one student land on the same shard, so they are handled in arrival
// order, while different students proceed in parallel.
type Dispatcher struct {
	handle Handler
	log    *logging.Logger
	shards []chan Signal

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher with n shards, each buffering up to
// buffer signals.
func NewDispatcher(n, buffer int, handle Handler, log *logging.Logger) *Dispatcher {
	if n < 1 {
		n = 1
	}
	if log == nil {
		log = logging.Nop()
	}
	d := &Dispatcher{handle: handle, log: log, shards: make([]chan Signal, n)}
	for i := range d.shards {
		d.shards[i] = make(chan Signal, buffer)
	}
	return d
}

// Push enqueues a signal, blocking while its shard is full.
func (d *Dispatcher) Push(ctx context.Context, sig Signal) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.shards[d.shardFor(sig.StudentID)] <- sig:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes signals until ctx is cancelled or Close has been called and
// every queued signal is handled. Handler errors are logged and do not stop
// the shard.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, ch := range d.shards {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case sig, ok := <-ch:
					if !ok {
						return nil
					}
					if err := d.handle(ctx, sig); err != nil {
						d.log.Warn("signal handling failed",
							"shard", i, "student", sig.StudentID, "type", sig.Type, "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

// Close stops accepting signals. Run returns once the queues drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
}

func (d *Dispatcher) shardFor(studentID string) int {
	h := fnv.New32a()
	h.Write([]byte(studentID))
	return int(h.Sum32() % uint32(len(d.shards)))
}
