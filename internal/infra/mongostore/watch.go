package mongostore

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// watch runs reload once, then again for every change event on coll. When a
// change stream cannot be opened (e.g. the user lacks the changeStream
// privilege) the watcher falls back to reloading every poll interval.
func (s *Store) watch(ctx context.Context, coll string, reload func(context.Context) error, onError port.ErrorFunc) port.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := reload(ctx); err != nil && ctx.Err() == nil {
			onError(err)
		}

		for ctx.Err() == nil {
			cs, err := s.db.Collection(coll).Watch(ctx, mongo.Pipeline{}, options.ChangeStream())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("mongo: change stream unavailable, polling instead",
					zap.String("collection", coll), zap.Error(err))
				s.poll(ctx, reload, onError)
				return
			}

			for cs.Next(ctx) {
				if err := reload(ctx); err != nil && ctx.Err() == nil {
					onError(err)
				}
			}
			streamErr := cs.Err()
			_ = cs.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
			if streamErr != nil {
				s.logger.Warn("mongo: change stream closed", zap.String("collection", coll), zap.Error(streamErr))
				onError(wrap(coll, streamErr))
			}

			// Reopen after a short pause and resync, events may have been missed.
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollInterval):
			}
			if err := reload(ctx); err != nil && ctx.Err() == nil {
				onError(err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (s *Store) poll(ctx context.Context, reload func(context.Context) error, onError port.ErrorFunc) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reload(ctx); err != nil && ctx.Err() == nil {
				onError(err)
			}
		}
	}
}
