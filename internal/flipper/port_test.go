package flipper

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// fakePort replays scripted device output. Each write pops the next reply from the
// script and queues it for reading; an empty queue behaves like a read timeout.
type fakePort struct {
	mu      sync.Mutex
	replies map[string][]string // command -> chunks returned after the command is written
	pending [][]byte
	written bytes.Buffer
	timeout time.Duration
	resets  int
	closed  bool
	readErr error
}

func newFakePort(replies map[string][]string) *fakePort {
	return &fakePort{replies: replies}
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.readErr != nil {
		err := p.readErr
		p.mu.Unlock()
		return 0, err
	}
	if p.closed {
		p.mu.Unlock()
		return 0, io.EOF
	}
	if len(p.pending) == 0 {
		timeout := p.timeout
		p.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	defer p.mu.Unlock()

	n := copy(b, p.pending[0])
	if n < len(p.pending[0]) {
		p.pending[0] = p.pending[0][n:]
	} else {
		p.pending = p.pending[1:]
	}
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.written.Write(b)
	cmd := string(bytes.TrimRight(b, "\r\n"))
	for _, chunk := range p.replies[cmd] {
		p.pending = append(p.pending, []byte(chunk))
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	p.pending = nil
	return nil
}

// inject queues bytes as if the device printed them without being asked
func (p *fakePort) inject(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, []byte(s))
}
