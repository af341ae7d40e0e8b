package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// logPump fans log lines out to every destination from a single goroutine,
// so handlers never block on slow disks.
type logPump struct {
	in     chan []byte
	syncCh chan chan error
	closed chan struct{}

	stopOnce sync.Once

	mu   sync.Mutex
	dst  []*bufio.Writer
	fail error
}

func newLogPump(writers []io.Writer, bufSize int) *logPump {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	p := &logPump{
		in:     make(chan []byte, 256),
		syncCh: make(chan chan error),
		closed: make(chan struct{}),
	}
	for _, w := range writers {
		if w != nil {
			p.dst = append(p.dst, bufio.NewWriterSize(w, bufSize))
		}
	}
	go p.run()
	return p
}

func (p *logPump) run() {
	for {
		select {
		case line, ok := <-p.in:
			if !ok {
				p.syncAll()
				close(p.closed)
				return
			}
			if len(line) > 0 {
				p.record(p.fanout(line))
			}
		case ack := <-p.syncCh:
			ack <- p.syncAll()
		}
	}
}

// Write copies the line and hands it to the pump goroutine. When the queue
// is full it blocks instead of dropping records.
func (p *logPump) Write(line []byte) error {
	if err := p.err(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	p.in <- append([]byte(nil), line...)
	return nil
}

// Flush blocks until everything queued so far has reached the destinations.
func (p *logPump) Flush() error {
	if err := p.err(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	p.syncCh <- ack
	return <-ack
}

// Close drains the queue and returns the first write error, if any.
func (p *logPump) Close() error {
	p.stopOnce.Do(func() { close(p.in) })
	<-p.closed
	return p.err()
}

func (p *logPump) fanout(line []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.dst {
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (p *logPump) syncAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, w := range p.dst {
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *logPump) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fail
}

func (p *logPump) record(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	if p.fail == nil {
		p.fail = err
	}
	p.mu.Unlock()
}
