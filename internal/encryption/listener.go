package encryption

import (
	"sync"
	"sync/atomic"
)

// Listener receives the events of a run. Progress events arrive from a single
// goroutine in increasing order of done.
type Listener interface {
	OnProgress(done, total int64)
	OnSuccess(message, destination string)
	OnError(message string, cause error)
	OnLog(message string)
}

// NopListener discards every event.
type NopListener struct{}

func (NopListener) OnProgress(int64, int64)  {}
func (NopListener) OnSuccess(string, string) {}
func (NopListener) OnError(string, error)    {}
func (NopListener) OnLog(string)             {}

// progress accumulates processed bytes atomically and forwards the totals
// through a channel to one goroutine that calls the listener.
type progress struct {
	total  int64
	done   atomic.Int64
	events chan int64
	wg     sync.WaitGroup
}

const progressBacklog = 64

func newProgress(listener Listener, total int64) *progress {
	p := &progress{
		total:  total,
		events: make(chan int64, progressBacklog),
	}

	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		last := int64(-1)

		for done := range p.events {
			// Workers may enqueue totals out of order.
			if done <= last {
				continue
			}

			last = done
			listener.OnProgress(done, p.total)
		}
	}()

	return p
}

// add records n more processed bytes.
func (p *progress) add(n int) {
	p.events <- p.done.Add(int64(n))
}

// processed returns the bytes recorded so far.
func (p *progress) processed() int64 {
	return p.done.Load()
}

// close flushes pending events and waits for the listener goroutine.
func (p *progress) close() {
	close(p.events)
	p.wg.Wait()
}
