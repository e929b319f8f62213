package notification

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrStreamClosed is returned by Send on a closed ChanStream.
var ErrStreamClosed = errors.New("stream closed")

// ChanStream is a Stream delivering notifications on a channel.
// Send blocks until the receiver takes the notification or the buffer has room.
type ChanStream[T any] struct {
	mu     sync.RWMutex
	ch     chan *Notification[T]
	done   chan struct{}
	once   sync.Once
	closed bool
}

// NewChanStream creates a stream with the given buffer size.
func NewChanStream[T any](buffer int) *ChanStream[T] {
	return &ChanStream[T]{
		ch:   make(chan *Notification[T], buffer),
		done: make(chan struct{}),
	}
}

// C returns the receive channel.
func (s *ChanStream[T]) C() <-chan *Notification[T] {
	return s.ch
}

// Send delivers n to the channel.
func (s *ChanStream[T]) Send(n *Notification[T]) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStreamClosed
	}
	select {
	case s.ch <- n:
		return nil
	case <-s.done:
		return ErrStreamClosed
	}
}

// Close stops delivery. Pending sends return ErrStreamClosed.
func (s *ChanStream[T]) Close() {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
