package stream

import (
	"io"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
)

// ByteSource is the read side a pump drains: both *fifo.Ring and the
// dataport types satisfy it.
type ByteSource interface {
	Read(p []byte) int
	Size() int
}

const pumpScratchSize = 4096

// Pump is a background draining agent. Each bound source gets a worker on a
// shared goroutine pool that continuously moves bytes into its sink, ceding
// one tick whenever the source runs dry. A pump is what turns a duplex
// stream's Flush from an unsupported pattern into a bounded wait.
type Pump struct {
	pool  *ants.Pool
	jobs  *queue.Queue
	clock Clock

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type drainJob struct {
	src  ByteSource
	sink io.Writer
}

// NewPump starts a pump with the given worker count. conf may be nil.
func NewPump(workers int, conf *Config) (*Pump, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	p := &Pump{
		pool:  pool,
		jobs:  queue.New(int64(workers)),
		clock: conf.clock(),
		quit:  make(chan struct{}),
	}
	go p.dispatch()
	return p, nil
}

// Drain binds src to sink: from now until Close, buffered bytes are moved in
// the background in committed order.
func (p *Pump) Drain(src ByteSource, sink io.Writer) error {
	return p.jobs.Put(&drainJob{src: src, sink: sink})
}

func (p *Pump) dispatch() {
	for {
		items, err := p.jobs.Get(1)
		if err != nil {
			// Disposed on Close.
			return
		}
		job, ok := items[0].(*drainJob)
		if !ok {
			continue
		}
		p.wg.Add(1)
		if err := p.pool.Submit(func() {
			defer p.wg.Done()
			p.run(job)
		}); err != nil {
			p.wg.Done()
			internalLogger.Errorf("stream: pump submit failed: %v", err)
		}
	}
}

func (p *Pump) run(job *drainJob) {
	scratch := make([]byte, pumpScratchSize)
	for {
		select {
		case <-p.quit:
			return
		default:
		}

		n := job.src.Read(scratch)
		if n == 0 {
			p.clock.DelayTick()
			continue
		}
		if _, err := job.sink.Write(scratch[:n]); err != nil {
			internalLogger.Errorf("stream: pump sink write failed: %v", err)
			return
		}
	}
}

// Close stops all workers and releases the pool. Sources keep whatever was
// not yet drained.
func (p *Pump) Close() {
	p.once.Do(func() {
		close(p.quit)
		p.jobs.Dispose()
		p.wg.Wait()
		p.pool.Release()
	})
}
