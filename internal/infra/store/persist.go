package store

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/notification"
	"github.com/osa030/queuebox/internal/app/playback"
)

// EventSource publishes engine events.
type EventSource interface {
	Subscribe(buffer int) (*notification.ChanStream[playback.Event], func())
}

// Follow subscribes to events and saves the queue after every event that
// touched it, until ctx is done or the stream closes. Selection-only events
// are skipped. The returned channel is closed when following stops.
func (s *Store) Follow(ctx context.Context, events EventSource) <-chan struct{} {
	stream, unsubscribe := events.Subscribe(32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer unsubscribe()
		s.follow(ctx, stream)
	}()
	return done
}

func (s *Store) follow(ctx context.Context, stream *notification.ChanStream[playback.Event]) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-stream.C():
			if !ok {
				return
			}
			if n.Payload.Type == playback.EventSelectionChanged {
				continue
			}
			if err := s.Save(ctx, n.Payload.Snapshot.Queue); err != nil {
				zlog.Warn().Msgf("store: failed to save queue: seq=%d error=%v", n.SequenceNo, err)
			}
		}
	}
}
